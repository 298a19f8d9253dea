package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/dlbot/internal/formatter"
	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/services"
	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/urfave/cli/v3"
)

type reportJSON struct {
	Playlists  int      `json:"playlists"`
	Tracks     int      `json:"tracks"`
	Downloaded int      `json:"downloaded"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// Check runs one pass of the playlist checker and prints its report.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	p, err := r.newPipeline(ctx, config, nil)
	if err != nil {
		return err
	}

	report, err := r.checker(config, p, nil).RunOnce(ctx)
	if err != nil {
		return err
	}

	out := reportJSON{
		Playlists:  report.Playlists,
		Tracks:     report.Tracks,
		Downloaded: report.Downloaded,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
	}
	for _, e := range report.Errors {
		out.Errors = append(out.Errors, e.Error())
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	if err := r.writePlain("Playlists: %d\nTracks: %d\nNew: %d\nSkipped: %d\nFailed: %d\n",
		out.Playlists, out.Tracks, out.Downloaded, out.Skipped, out.Failed); err != nil {
		return err
	}
	for _, e := range out.Errors {
		if err := r.writePlain("  ✗ %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

// WatchList prints the watched playlists.
func (r *Runner) WatchList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	entries := library.NewWatchlist(config.Downloads.PlaylistsFile, r.logger).List()
	if _, err := r.output.Write(formatter.WatchlistToText(entries)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WatchAdd adds a Spotify playlist to the watchlist without downloading it.
func (r *Runner) WatchAdd(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: playlist url", shared.ErrMissingArgument)
	}

	id, err := services.ExtractPlaylistID(url)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	folder := cmd.String("folder")
	if folder == "" {
		return errors.New("folder must not be empty")
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	wl := library.NewWatchlist(config.Downloads.PlaylistsFile, r.logger)
	if err := wl.Add(id, library.WatchedPlaylist{URL: url, Folder: folder}); err != nil {
		return err
	}
	return r.writePlain("✓ Watching %s -> %s\n", id, folder)
}
