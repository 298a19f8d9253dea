package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// markdown is Telegram's legacy Markdown mode, which only needs backticks and asterisks escaped.
const markdown models.ParseMode = "Markdown"

// Telegram adapts a [bot.Bot] to [Messenger] and delivers its updates to a handler.
type Telegram struct {
	client  *bot.Bot
	logger  *log.Logger
	handler func(context.Context, *models.Update)
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, logger *log.Logger, opts ...bot.Option) (*Telegram, error) {
	if logger == nil {
		logger = log.Default()
	}
	t := &Telegram{logger: logger}

	opts = append([]bot.Option{
		bot.WithDefaultHandler(t.dispatch),
		bot.WithErrorsHandler(func(err error) {
			logger.Error("telegram polling error", "err", err)
		}),
	}, opts...)

	client, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	t.client = client
	return t, nil
}

// Listen polls for updates and passes each one to handler until ctx is cancelled.
func (t *Telegram) Listen(ctx context.Context, handler func(context.Context, *models.Update)) {
	t.handler = handler
	t.client.Start(ctx)
}

func (t *Telegram) dispatch(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if t.handler != nil {
		t.handler(ctx, update)
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: markdown}
	if len(buttons) > 0 {
		params.ReplyMarkup = keyboard(buttons)
	}

	msg, err := t.client.SendMessage(ctx, params)
	if isParseError(err) {
		params.ParseMode = ""
		msg, err = t.client.SendMessage(ctx, params)
	}
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *Telegram) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	params := &bot.EditMessageTextParams{ChatID: chatID, MessageID: messageID, Text: text, ParseMode: markdown}

	_, err := t.client.EditMessageText(ctx, params)
	if isParseError(err) {
		params.ParseMode = ""
		_, err = t.client.EditMessageText(ctx, params)
	}
	return err
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := t.client.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

func (t *Telegram) SetCommands(ctx context.Context, commands []Command) error {
	list := make([]models.BotCommand, 0, len(commands))
	for _, c := range commands {
		list = append(list, models.BotCommand{Command: c.Name, Description: c.Description})
	}
	_, err := t.client.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: list})
	return err
}

func keyboard(rows [][]Button) *models.InlineKeyboardMarkup {
	markup := &models.InlineKeyboardMarkup{InlineKeyboard: make([][]models.InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

// isParseError reports a rejected Markdown entity, usually from a title with stray markup characters.
func isParseError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "can't parse entities")
}
