package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/media"
	"golang.org/x/sync/semaphore"
)

const terminalEditTimeout = 10 * time.Second

// Job is one download request: one or more locators written to a single directory.
type Job struct {
	Locators []string
	OutDir   string
	Options  media.Options
	Status   Status
	Label    string
}

// Result counts the items of a finished job.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int
	Titles     []string
}

// Total is the number of entries the job saw.
func (r *Result) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// WorkerOpts configures a [Worker].
type WorkerOpts struct {
	Extractor    media.Extractor
	Archive      *library.Archive
	Logger       *log.Logger
	MaxWorkers   int
	Silent       func() bool
	Clock        func() time.Time
	Interval     time.Duration
	RelayTimeout time.Duration
}

// Worker runs jobs against an extractor with a bounded number of concurrent fetches.
type Worker struct {
	extractor    media.Extractor
	archive      *library.Archive
	logger       *log.Logger
	slots        *semaphore.Weighted
	silent       func() bool
	clock        func() time.Time
	interval     time.Duration
	relayTimeout time.Duration
}

// NewWorker creates a Worker. MaxWorkers defaults to 1 and Interval to [UpdateInterval].
func NewWorker(opts WorkerOpts) *Worker {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Silent == nil {
		opts.Silent = func() bool { return false }
	}
	if opts.Interval <= 0 {
		opts.Interval = UpdateInterval
	}
	return &Worker{
		extractor:    opts.Extractor,
		archive:      opts.Archive,
		logger:       opts.Logger,
		slots:        semaphore.NewWeighted(int64(opts.MaxWorkers)),
		silent:       opts.Silent,
		clock:        opts.Clock,
		interval:     opts.Interval,
		relayTimeout: opts.RelayTimeout,
	}
}

type batchOutcome struct {
	result *Result
	err    error
}

// Download runs job to completion and makes exactly one terminal edit of job.Status.
//
// The batch runs on its own goroutine while the calling goroutine applies progress edits.
// When ctx is cancelled Download returns [ErrCancelled] without waiting for the in-flight fetch.
func (w *Worker) Download(ctx context.Context, job Job) (*Result, error) {
	logger := w.logger.With("label", job.Label)
	rl := newRelay(w.relayTimeout, logger)
	tracker := NewTracker(job.Label, w.interval, w.clock)

	outcome := make(chan batchOutcome, 1)
	go func() {
		res, err := w.runBatch(ctx, job, logger, func(p media.Progress) {
			if text, ok := tracker.Update(p); ok {
				rl.post(ctx, text)
			}
		})
		outcome <- batchOutcome{res, err}
	}()

	for {
		select {
		case u := <-rl.inbox:
			serve(ctx, job.Status, u)
		case <-ctx.Done():
			return &Result{}, w.finish(ctx, job, logger, nil, ctx.Err())
		case out := <-outcome:
			err := out.err
			if err == nil && ctx.Err() != nil {
				err = ctx.Err()
			}
			return out.result, w.finish(ctx, job, logger, out.result, err)
		}
	}
}

// finish makes the terminal edit and returns the job error.
func (w *Worker) finish(ctx context.Context, job Job, logger *log.Logger, res *Result, err error) error {
	editCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalEditTimeout)
	defer cancel()

	var text string
	switch {
	case err == nil:
		text = successText(job, res)
		logger.Info("download finished", "downloaded", res.Downloaded, "skipped", res.Skipped, "failed", res.Failed)
	case errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled):
		err = ErrCancelled
		logger.Info("download cancelled")
		if w.silent() {
			return err
		}
		text = "🛑 Download cancelled."
	default:
		text = errorText(job, err)
		logger.Error("download failed", "err", err)
	}

	if editErr := job.Status.Edit(editCtx, text); editErr != nil {
		logger.Warn("final status update failed", "err", editErr)
	}
	return err
}

func successText(job Job, res *Result) string {
	if len(job.Locators) == 1 && res.Total() == 1 {
		name := job.Label
		if res.Downloaded == 1 && len(res.Titles) == 1 && res.Titles[0] != "" {
			name = res.Titles[0]
		}
		if res.Skipped == 1 {
			return fmt.Sprintf("✅ Done `%s` (already downloaded).", name)
		}
		return fmt.Sprintf("✅ Done `%s`.", name)
	}
	return fmt.Sprintf("✅ Done `%s`: %d downloaded, %d skipped, %d failed.", job.Label, res.Downloaded, res.Skipped, res.Failed)
}

func errorText(job Job, err error) string {
	line := media.LastLine(err.Error())
	if errors.Is(err, media.ErrToolMissing) && strings.Contains(strings.ToLower(err.Error()), "ffmpeg") {
		return fmt.Sprintf("❌ Download failed: `ffmpeg` is probably missing. Install it on the host (e.g. `sudo apt install ffmpeg`). Details: `%s`", line)
	}
	return fmt.Sprintf("❌ Download of `%s` failed: `%s`", job.Label, line)
}

// runBatch processes every locator. Item failures are counted and logged; missing
// tools and cancellation stop the batch.
func (w *Worker) runBatch(ctx context.Context, job Job, logger *log.Logger, progress func(media.Progress)) (*Result, error) {
	res := &Result{}
	var lastErr error

	for _, locator := range job.Locators {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		listing, err := w.extractor.Resolve(ctx, locator)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if errors.Is(err, media.ErrToolMissing) {
				return res, err
			}
			logger.Error("failed to resolve", "locator", locator, "err", err)
			res.Failed++
			lastErr = err
			continue
		}

		for _, entry := range listing.Entries {
			if w.archive != nil && w.archive.Contains(entry.Key()) {
				logger.Debug("already archived", "key", entry.Key())
				res.Skipped++
				continue
			}

			item, err := w.fetch(ctx, media.FetchRequest{Entry: entry, OutDir: job.OutDir, Options: job.Options}, progress)
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if err != nil {
				if errors.Is(err, media.ErrToolMissing) {
					return res, err
				}
				logger.Error("failed to download", "key", entry.Key(), "err", err)
				res.Failed++
				lastErr = err
				continue
			}

			if w.archive != nil {
				if err := w.archive.Add(entry.Key()); err != nil {
					logger.Warn("failed to record download", "key", entry.Key(), "err", err)
				}
			}
			res.Downloaded++
			res.Titles = append(res.Titles, itemTitle(item))
		}
	}

	if res.Downloaded == 0 && res.Skipped == 0 && lastErr != nil {
		return res, lastErr
	}
	return res, nil
}

// fetch holds a pool slot for the duration of one extractor fetch.
func (w *Worker) fetch(ctx context.Context, req media.FetchRequest, progress func(media.Progress)) (media.Item, error) {
	if err := w.slots.Acquire(ctx, 1); err != nil {
		return media.Item{}, err
	}
	defer w.slots.Release(1)

	return w.extractor.Fetch(ctx, req, progress)
}

func itemTitle(item media.Item) string {
	if item.Entry.Title != "" {
		return item.Entry.Title
	}
	return item.Filename
}
