package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/services"
	"github.com/desertthunder/dlbot/internal/shared"
)

// DefaultCheckInterval is the pause between scheduled checker cycles.
const DefaultCheckInterval = 6 * time.Hour

// Notifier delivers a message to the bot owner.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Report summarizes one checker cycle.
type Report struct {
	Playlists  int
	Tracks     int
	Downloaded int
	Skipped    int
	Failed     int
	Errors     []error
}

// CheckerOpts configures a [Checker].
type CheckerOpts struct {
	Watchlist *library.Watchlist
	Catalog   services.MusicCatalog
	Worker    *Worker
	Resolver  library.Resolver
	Notifier  Notifier
	Options   media.Options
	Interval  time.Duration
	Logger    *log.Logger
}

// Checker downloads new tracks of watched playlists.
type Checker struct {
	watchlist *library.Watchlist
	catalog   services.MusicCatalog
	worker    *Worker
	resolver  library.Resolver
	notifier  Notifier
	options   media.Options
	interval  time.Duration
	logger    *log.Logger
	mu        sync.Mutex
}

// NewChecker creates a Checker. Interval defaults to [DefaultCheckInterval].
func NewChecker(opts CheckerOpts) *Checker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultCheckInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Checker{
		watchlist: opts.Watchlist,
		catalog:   opts.Catalog,
		worker:    opts.Worker,
		resolver:  opts.Resolver,
		notifier:  opts.Notifier,
		options:   opts.Options,
		interval:  opts.Interval,
		logger:    opts.Logger,
	}
}

// Run repeats [Checker.RunOnce] every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) error {
	c.logger.Info("playlist checker started", "interval", c.interval)
	for {
		if _, err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("playlist check failed", "err", err)
			c.notify(ctx, fmt.Sprintf("❌ Playlist check failed: %s", media.LastLine(err.Error())))
		}

		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("playlist checker stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunOnce checks every watched playlist once. Cycles never overlap; a second
// caller waits for the running cycle to end.
func (c *Checker) RunOnce(ctx context.Context) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog == nil {
		return nil, fmt.Errorf("%w: spotify client id/secret", shared.ErrMissingCredentials)
	}

	report := &Report{}
	for _, entry := range c.watchlist.List() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Playlists++

		if err := c.checkPlaylist(ctx, entry, report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			c.logger.Error("failed to check playlist", "playlist", entry.ID, "err", err)
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", entry.ID, err))
		}
	}

	if report.Tracks > 0 {
		c.notify(ctx, fmt.Sprintf("🔁 Playlist check finished: %d tracks checked in %d playlists, %d new.",
			report.Tracks, report.Playlists, report.Downloaded))
	} else {
		c.logger.Info("playlist check finished, no tracks checked", "playlists", report.Playlists)
	}
	return report, nil
}

func (c *Checker) checkPlaylist(ctx context.Context, entry library.WatchEntry, report *Report) error {
	tracks, err := c.catalog.PlaylistTracks(ctx, entry.URL)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return nil
	}

	locators := make([]string, 0, len(tracks))
	for _, t := range tracks {
		locators = append(locators, "ytsearch1:"+t.SearchQuery())
	}
	report.Tracks += len(locators)

	dir, err := c.resolver.Folder(entry.Folder)
	if err != nil {
		return err
	}

	res, err := c.worker.Download(ctx, Job{
		Locators: locators,
		OutDir:   dir,
		Options:  c.options,
		Status:   LogStatus{Logger: c.logger.With("playlist", entry.ID)},
		Label:    entry.Folder,
	})
	if res != nil {
		report.Downloaded += res.Downloaded
		report.Skipped += res.Skipped
		report.Failed += res.Failed
	}
	return err
}

func (c *Checker) notify(ctx context.Context, text string) {
	if c.notifier == nil {
		c.logger.Info(text)
		return
	}
	if err := c.notifier.Notify(context.WithoutCancel(ctx), text); err != nil {
		c.logger.Warn("failed to notify owner", "err", err)
	}
}
