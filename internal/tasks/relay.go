package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Status is the single mutable message a job reports into.
type Status interface {
	Edit(ctx context.Context, text string) error
}

// LogStatus is a [Status] that writes edits to a logger, for jobs without a chat message.
type LogStatus struct {
	Logger *log.Logger
}

func (s LogStatus) Edit(_ context.Context, text string) error {
	if s.Logger != nil {
		s.Logger.Info(text)
	}
	return nil
}

// DefaultRelayTimeout bounds how long a progress callback waits for its edit.
const DefaultRelayTimeout = 15 * time.Second

type statusUpdate struct {
	text string
	ack  chan error
}

// relay carries status edits from the fetching goroutine to the goroutine owning the status.
type relay struct {
	inbox   chan statusUpdate
	timeout time.Duration
	logger  *log.Logger
}

func newRelay(timeout time.Duration, logger *log.Logger) *relay {
	if timeout <= 0 {
		timeout = DefaultRelayTimeout
	}
	return &relay{inbox: make(chan statusUpdate), timeout: timeout, logger: logger}
}

// post hands text to the owner and waits for the edit result.
func (r *relay) post(ctx context.Context, text string) {
	u := statusUpdate{text: text, ack: make(chan error, 1)}
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case r.inbox <- u:
	case <-ctx.Done():
		return
	case <-timer.C:
		r.logger.Warn("status update not delivered", "err", "owner busy")
		return
	}

	select {
	case err := <-u.ack:
		if err != nil {
			r.logger.Warn("status update failed", "err", err)
		}
	case <-ctx.Done():
	case <-timer.C:
		r.logger.Warn("status update not acknowledged", "timeout", r.timeout)
	}
}

// serve applies one posted update on the owner goroutine.
func serve(ctx context.Context, status Status, u statusUpdate) {
	u.ack <- status.Edit(ctx, u.text)
}
