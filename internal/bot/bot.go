package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/models"
	"github.com/desertthunder/dlbot/internal/services"
	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/desertthunder/dlbot/internal/tasks"
	tgmodels "github.com/go-telegram/bot/models"
)

// HistoryReader lists recorded downloads. Implemented by repositories.DownloadRepository.
type HistoryReader interface {
	Recent(limit int) ([]*models.Download, error)
	ByUser(userID int64, limit int) ([]*models.Download, error)
}

// UpdateSource delivers chat updates until ctx is cancelled.
type UpdateSource interface {
	Listen(ctx context.Context, handler func(context.Context, *tgmodels.Update))
}

// Opts configures a [Bot]. Catalog, Checker and History are optional.
type Opts struct {
	Messenger Messenger
	Manager   *tasks.Manager
	Worker    *tasks.Worker
	Checker   *tasks.Checker
	Extractor media.Extractor
	Catalog   services.MusicCatalog
	Resolver  library.Resolver
	Watchlist *library.Watchlist
	History   HistoryReader
	Notifier  *OwnerNotifier
	Silent    *atomic.Bool
	Audio     media.Options
	Video     media.Options
	OwnerID   int64
	ChatID    int64
	// RunChecker starts the scheduled playlist checker with the bot.
	RunChecker bool
	// FFmpeg reports whether ffmpeg is installed. Defaults to [media.FFmpegAvailable].
	FFmpeg    func() bool
	ChoiceTTL time.Duration
	Clock     func() time.Time
	Logger    *log.Logger
}

// Bot routes chat updates to downloads, the checker and admin commands.
type Bot struct {
	messenger  Messenger
	manager    *tasks.Manager
	worker     *tasks.Worker
	checker    *tasks.Checker
	extractor  media.Extractor
	catalog    services.MusicCatalog
	resolver   library.Resolver
	watchlist  *library.Watchlist
	history    HistoryReader
	notifier   *OwnerNotifier
	silent     *atomic.Bool
	audio      media.Options
	video      media.Options
	ownerID    int64
	chatID     int64
	runChecker bool
	ffmpeg     func() bool
	choices    *choices
	logger     *log.Logger

	// done is cancelled with the reason the bot should stop.
	done context.Context
	stop context.CancelCauseFunc
	wg   sync.WaitGroup
}

// New creates a Bot.
func New(opts Opts) *Bot {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Silent == nil {
		opts.Silent = new(atomic.Bool)
	}
	if opts.Manager == nil {
		opts.Manager = tasks.NewManager(nil, nil, opts.Logger)
	}
	if opts.FFmpeg == nil {
		opts.FFmpeg = media.FFmpegAvailable
	}
	if opts.Notifier == nil {
		opts.Notifier = NewOwnerNotifier(opts.Messenger, opts.OwnerID, opts.Logger)
	}

	done, stop := context.WithCancelCause(context.Background())
	return &Bot{
		messenger:  opts.Messenger,
		manager:    opts.Manager,
		worker:     opts.Worker,
		checker:    opts.Checker,
		extractor:  opts.Extractor,
		catalog:    opts.Catalog,
		resolver:   opts.Resolver,
		watchlist:  opts.Watchlist,
		history:    opts.History,
		notifier:   opts.Notifier,
		silent:     opts.Silent,
		audio:      opts.Audio,
		video:      opts.Video,
		ownerID:    opts.OwnerID,
		chatID:     opts.ChatID,
		runChecker: opts.RunChecker,
		ffmpeg:     opts.FFmpeg,
		choices:    newChoices(opts.ChoiceTTL, opts.Clock),
		logger:     opts.Logger,
		done:       done,
		stop:       stop,
	}
}

// Silent reports whether cancellation messages are suppressed. Errors are always reported.
func (b *Bot) Silent() bool {
	return b.silent.Load()
}

// Run announces the bot, starts the checker and handles updates from src until ctx
// is cancelled or an admin stops the bot. It returns [shared.ErrRestartRequested] or
// [shared.ErrShutdownRequested] when stopped by command, otherwise nil.
func (b *Bot) Run(ctx context.Context, src UpdateSource) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stopWatch := context.AfterFunc(b.done, func() { cancel(context.Cause(b.done)) })
	defer stopWatch()

	b.startup(ctx)

	if b.runChecker && b.checker != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			_ = b.checker.Run(ctx)
		}()
	}

	listening := make(chan struct{})
	go func() {
		defer close(listening)
		src.Listen(ctx, b.HandleUpdate)
	}()

	select {
	case <-ctx.Done():
	case <-listening:
		cancel(nil)
	}
	<-listening

	b.logger.Info("waiting for running downloads to stop")
	b.Wait()

	cause := context.Cause(ctx)
	if errors.Is(cause, shared.ErrRestartRequested) || errors.Is(cause, shared.ErrShutdownRequested) {
		return cause
	}
	return nil
}

// Wait blocks until every task and background job started by the bot has returned.
func (b *Bot) Wait() {
	b.manager.Wait()
	b.wg.Wait()
}

func (b *Bot) startup(ctx context.Context) {
	if !b.ffmpeg() {
		b.logger.Error("ffmpeg was not found in PATH, audio extraction and merging will fail")
		if err := b.notifier.NotifyError(ctx,
			"⚠️ *Warning:* ffmpeg was not found in PATH. Audio downloads and merging video with audio will not work.",
			"Install ffmpeg, e.g. sudo apt install ffmpeg"); err != nil {
			b.logger.Warn("failed to notify owner", "err", err)
		}
	}

	if err := b.messenger.SetCommands(ctx, commandList()); err != nil {
		b.logger.Error("failed to register commands", "err", err)
	} else {
		b.logger.Info("commands registered")
	}

	if err := b.notifier.Notify(ctx, "✅ Bot started and is online."); err != nil {
		b.logger.Warn("failed to notify owner", "err", err)
	}
}

// request is the part of an update the handlers care about.
type request struct {
	chatID    int64
	userID    int64
	userName  string
	messageID int
	text      string
}

// HandleUpdate routes one update. It never blocks on downloads.
func (b *Bot) HandleUpdate(ctx context.Context, update *tgmodels.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		req := request{chatID: msg.Chat.ID, messageID: msg.ID, text: strings.TrimSpace(msg.Text)}
		if msg.From != nil {
			req.userID = msg.From.ID
			req.userName = displayName(*msg.From)
		}
		b.handleMessage(ctx, req)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) int {
	id, err := b.messenger.Send(ctx, chatID, text, nil)
	if err != nil {
		b.logger.Warn("failed to send message", "chat", chatID, "err", err)
	}
	return id
}

func (b *Bot) status(chatID int64, messageID int) tasks.Status {
	return chatStatus{messenger: b.messenger, chatID: chatID, messageID: messageID}
}

func displayName(u tgmodels.User) string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	default:
		return strconv.FormatInt(u.ID, 10)
	}
}
