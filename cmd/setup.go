package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file when none exists, then prepares directories, the archive and the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.pathFor(cmd)
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	res := resolver(config)
	dirs := []string{res.Root(library.Audio), res.Root(library.Video)}
	if config.Logging.Dir != "" {
		dirs = append(dirs, config.Logging.Dir)
	}
	if err := shared.EnsureDirs(dirs...); err != nil {
		return err
	}
	for _, d := range dirs {
		r.writePlain("✓ Directory %s\n", d)
	}

	if err := shared.Touch(config.Downloads.ArchiveFile); err != nil {
		return err
	}
	r.writePlain("✓ Archive %s\n", config.Downloads.ArchiveFile)

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := r.openDB(config)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}
	r.writePlain("✓ Database %s (schema version %d)\n", config.Database.Path, version)

	if cmd.Bool("install") {
		r.logger.Info("installing yt-dlp")
		if err := media.Install(ctx); err != nil {
			return err
		}
		r.writePlain("✓ yt-dlp installed\n")
	}

	if r.ffmpeg() {
		r.writePlain("✓ ffmpeg found\n")
	} else {
		r.writePlain("✗ ffmpeg not found: audio conversion and merging will fail (try: sudo apt install ffmpeg)\n")
	}

	if err := config.Validate(); err != nil {
		r.writePlain("Next: set TELEGRAM_BOT_TOKEN in %s or the environment, then run 'dlbot run'\n", configPath)
		r.logger.Debug("config incomplete", "err", err)
	}
	return nil
}
