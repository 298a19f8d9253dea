package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/dlbot/internal/formatter"
	"github.com/desertthunder/dlbot/internal/models"
	"github.com/desertthunder/dlbot/internal/platform"
	"github.com/desertthunder/dlbot/internal/repositories"
	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded downloads, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if user := int64(cmd.Int("user")); user != 0 {
		criteria["user_id"] = user
	}
	if s := cmd.String("status"); s != "" {
		status := models.DownloadStatus(s)
		if !status.Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, s)
		}
		criteria["status"] = status
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := r.openDB(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	downloads, err := repositories.NewDownloadRepository(db).List(criteria)
	if err != nil {
		return err
	}
	return formatter.WriteHistory(r.output, format, downloads, r.output == os.Stdout)
}

// Classify prints the platform of a link and the flow the bot would offer for it.
func (r *Runner) Classify(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	p := platform.Detect(url)
	var flow string
	switch {
	case p == platform.Unknown:
		flow = "unsupported"
	case p == platform.SpotifyPlaylist:
		flow = "spotify playlist: tracks searched on YouTube, playlist watched"
	case p == platform.SpotifyTrack:
		flow = "spotify track: searched on YouTube as audio"
	case p.IsPlaylist():
		flow = "playlist: choose video or audio"
	default:
		flow = "single item: choose video or audio"
	}
	return r.writePlain("%s\t%s\n", p, flow)
}
