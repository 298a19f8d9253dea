package bot

import (
	"context"
	"strings"
)

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Command is a bot command shown in the client's command menu.
type Command struct {
	Name        string
	Description string
}

// Messenger sends and edits chat messages.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	SetCommands(ctx context.Context, commands []Command) error
}

// chatStatus is a [tasks.Status] backed by one chat message.
type chatStatus struct {
	messenger Messenger
	chatID    int64
	messageID int
}

func (s chatStatus) Edit(ctx context.Context, text string) error {
	err := s.messenger.Edit(ctx, s.chatID, s.messageID, text)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}
