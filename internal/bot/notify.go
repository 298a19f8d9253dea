package bot

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// OwnerNotifier sends notifications as direct messages to the bot owner.
type OwnerNotifier struct {
	messenger Messenger
	ownerID   int64
	logger    *log.Logger
}

// NewOwnerNotifier returns a notifier for ownerID. Notifications are only logged when ownerID is 0.
func NewOwnerNotifier(m Messenger, ownerID int64, logger *log.Logger) *OwnerNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &OwnerNotifier{messenger: m, ownerID: ownerID, logger: logger}
}

// Notify implements tasks.Notifier.
func (n *OwnerNotifier) Notify(ctx context.Context, text string) error {
	if n.ownerID == 0 {
		n.logger.Warn("cannot notify owner, owner id is not set", "message", text)
		return nil
	}
	if _, err := n.messenger.Send(ctx, n.ownerID, "🔔 "+text, nil); err != nil {
		return fmt.Errorf("failed to notify owner: %w", err)
	}
	return nil
}

// NotifyError is [OwnerNotifier.Notify] with error details in a code block.
func (n *OwnerNotifier) NotifyError(ctx context.Context, text, details string) error {
	return n.Notify(ctx, fmt.Sprintf("%s\n\n*Error:*\n```\n%s\n```", text, details))
}
