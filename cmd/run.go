package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/desertthunder/dlbot/internal/bot"
	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/repositories"
	"github.com/desertthunder/dlbot/internal/services"
	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/desertthunder/dlbot/internal/tasks"
	"github.com/urfave/cli/v3"
)

// pipeline is the download machinery shared by the bot and the check command.
type pipeline struct {
	resolver  library.Resolver
	archive   *library.Archive
	watchlist *library.Watchlist
	catalog   services.MusicCatalog
	worker    *tasks.Worker
	audio     media.Options
	video     media.Options
}

// newPipeline creates the download directories and archive file and wires a worker over them.
func (r *Runner) newPipeline(ctx context.Context, config *shared.Config, silent func() bool) (*pipeline, error) {
	res := resolver(config)
	if err := shared.EnsureDirs(res.Root(library.Audio), res.Root(library.Video)); err != nil {
		return nil, err
	}

	if err := shared.Touch(config.Downloads.ArchiveFile); err != nil {
		return nil, err
	}
	archive, err := library.OpenArchive(config.Downloads.ArchiveFile)
	if err != nil {
		return nil, err
	}

	if config.Downloads.AutoInstall {
		if err := media.Install(ctx); err != nil {
			r.logger.Warn("yt-dlp install failed", "err", err)
		}
	}

	catalog, err := r.getCatalog(config)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		r.logger.Warn("spotify credentials not configured, spotify links are disabled")
	}

	worker := tasks.NewWorker(tasks.WorkerOpts{
		Extractor:  r.getExtractor(),
		Archive:    archive,
		Logger:     shared.WithLogger(r.logger, "component", "worker"),
		MaxWorkers: config.Downloads.MaxWorkers,
		Silent:     silent,
	})

	return &pipeline{
		resolver:  res,
		archive:   archive,
		watchlist: library.NewWatchlist(config.Downloads.PlaylistsFile, r.logger),
		catalog:   catalog,
		worker:    worker,
		audio:     media.AudioOptions(config.Downloads.AudioFormat, config.Downloads.AudioQuality),
		video:     media.VideoOptions(config.Downloads.VideoFormat, config.Downloads.MergeFormat),
	}, nil
}

// checker returns a playlist checker over p that reports to notifier.
func (r *Runner) checker(config *shared.Config, p *pipeline, notifier tasks.Notifier) *tasks.Checker {
	return tasks.NewChecker(tasks.CheckerOpts{
		Watchlist: p.watchlist,
		Catalog:   p.catalog,
		Worker:    p.worker,
		Resolver:  p.resolver,
		Notifier:  notifier,
		Options:   p.audio,
		Interval:  config.Checker.Interval.Duration,
		Logger:    shared.WithLogger(r.logger, "component", "checker"),
	})
}

// Run starts the bot and blocks until it stops.
//
// A /restart ends the process with [shared.ExitRestart] so a supervisor relaunches it.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Logging.Level))
	if config.Logging.Dir != "" {
		logFile, err := shared.OpenLogFile(config.Logging.Dir)
		if err != nil {
			r.logger.Warn("logging to stderr only", "err", err)
		} else {
			defer logFile.Close()
			r.logger.SetOutput(shared.LogWriter(logFile))
		}
	}

	db, err := r.openDB(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	history := repositories.NewDownloadRepository(db)
	if n, err := history.MarkInterrupted(); err != nil {
		r.logger.Warn("failed to close stale downloads", "err", err)
	} else if n > 0 {
		r.logger.Info("marked unfinished downloads as interrupted", "count", n)
	}

	silent := new(atomic.Bool)
	p, err := r.newPipeline(ctx, config, silent.Load)
	if err != nil {
		return err
	}

	client, err := bot.NewTelegram(config.Telegram.Token, shared.WithLogger(r.logger, "component", "telegram"))
	if err != nil {
		return err
	}

	notifier := bot.NewOwnerNotifier(client, config.Telegram.OwnerID, r.logger)
	b := bot.New(bot.Opts{
		Messenger:  client,
		Manager:    tasks.NewManager(tasks.NewRegistry(), history, shared.WithLogger(r.logger, "component", "tasks")),
		Worker:     p.worker,
		Checker:    r.checker(config, p, notifier),
		Extractor:  r.getExtractor(),
		Catalog:    p.catalog,
		Resolver:   p.resolver,
		Watchlist:  p.watchlist,
		History:    history,
		Notifier:   notifier,
		Silent:     silent,
		Audio:      p.audio,
		Video:      p.video,
		OwnerID:    config.Telegram.OwnerID,
		ChatID:     config.Telegram.ChatID,
		RunChecker: config.Checker.Enabled && !cmd.Bool("no-checker"),
		Logger:     r.logger,
	})

	r.logger.Info("bot starting", "owner", config.Telegram.OwnerID, "chat", config.Telegram.ChatID,
		"archive", p.archive.Len(), "watched", len(p.watchlist.List()))
	return exitCode(b.Run(ctx, client))
}
