package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/platform"
	"github.com/desertthunder/dlbot/internal/services"
	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/desertthunder/dlbot/internal/tasks"
	tgmodels "github.com/go-telegram/bot/models"
)

// Callback data prefixes. Data is "<scope>:<kind>:<token>".
const (
	scopeItem     = "dl"
	scopePlaylist = "pl"
)

const (
	busyText          = "⏳ You already have a download running. Wait for it to finish or stop it with /stopdl."
	folderErrorText   = "❌ Could not prepare the download folder."
	playlistErrorText = "❌ The playlist is empty or its metadata could not be read."

	// fallbackPlaylistName names playlists whose metadata could not be read.
	fallbackPlaylistName = "playlist"
)

func (b *Bot) handleDownload(ctx context.Context, req request, url string) {
	if url == "" {
		b.reply(ctx, req.chatID, "❌ Usage: `/download <url>`")
		return
	}

	p := platform.Detect(url)
	logger := b.logger.With("user", req.userID, "platform", p)
	if p == platform.Unknown {
		logger.Info("unsupported link", "url", url)
		b.reply(ctx, req.chatID, "❌ Unsupported platform.")
		return
	}
	if _, busy := b.manager.Registry().Active(req.userID); busy {
		b.reply(ctx, req.chatID, busyText)
		return
	}

	switch p {
	case platform.SpotifyPlaylist:
		b.startSpotifyPlaylist(ctx, req, url)
	case platform.SpotifyTrack:
		b.startSpotifyTrack(ctx, req, url)
	case platform.YouTubePlaylist:
		b.offerChoice(ctx, req, url, scopePlaylist,
			"Download the *whole playlist* as *video* or *audio (MP3)*?", "🎞️ Video playlist", "🎵 Audio playlist (MP3)")
	default:
		b.offerChoice(ctx, req, url, scopeItem,
			"Download as *video* or *audio*?", "🎬 Video", "🎧 Audio")
	}
}

func (b *Bot) offerChoice(ctx context.Context, req request, url, scope, question, videoLabel, audioLabel string) {
	token := b.choices.put(url, req.userID)
	buttons := [][]Button{{
		{Text: videoLabel, Data: fmt.Sprintf("%s:%s:%s", scope, library.Video, token)},
		{Text: audioLabel, Data: fmt.Sprintf("%s:%s:%s", scope, library.Audio, token)},
	}}
	if _, err := b.messenger.Send(ctx, req.chatID, question, buttons); err != nil {
		b.logger.Warn("failed to offer download choice", "err", err)
	}
}

func parseCallbackData(data string) (scope string, kind library.Kind, token string, err error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || (parts[0] != scopeItem && parts[0] != scopePlaylist) {
		return "", "", "", fmt.Errorf("%w: callback data %q", shared.ErrInvalidInput, data)
	}
	kind, err = library.ParseKind(parts[1])
	if err != nil {
		return "", "", "", err
	}
	return parts[0], kind, parts[2], nil
}

func (b *Bot) handleCallback(ctx context.Context, q *tgmodels.CallbackQuery) {
	answer := func(text string) {
		if err := b.messenger.AnswerCallback(ctx, q.ID, text); err != nil {
			b.logger.Warn("failed to answer callback", "err", err)
		}
	}

	scope, kind, token, err := parseCallbackData(q.Data)
	if err != nil {
		b.logger.Debug("ignoring callback", "err", err)
		answer("")
		return
	}

	req := request{userID: q.From.ID, userName: displayName(q.From), chatID: q.From.ID}
	if msg := q.Message.Message; msg != nil {
		req.chatID = msg.Chat.ID
		req.messageID = msg.ID
	}

	item, err := b.choices.claim(token, req.userID)
	switch {
	case errors.Is(err, errChoiceForeign):
		answer("This choice belongs to someone else.")
		return
	case err != nil:
		answer("This choice has expired.")
		if req.messageID != 0 {
			b.edit(ctx, req.chatID, req.messageID, "⌛ This choice has expired. Send the link again.")
		}
		return
	}
	answer("")

	// The question message becomes the status message; editing its text drops the buttons.
	if req.messageID == 0 {
		req.messageID = b.reply(ctx, req.chatID, "⏳ Preparing download...")
	} else {
		b.edit(ctx, req.chatID, req.messageID, "⏳ Preparing download...")
	}

	if scope == scopePlaylist {
		b.startYouTubePlaylist(ctx, req, item.url, kind)
		return
	}
	b.startSingle(ctx, req, item.url, kind)
}

func (b *Bot) edit(ctx context.Context, chatID int64, messageID int, text string) {
	if err := b.status(chatID, messageID).Edit(ctx, text); err != nil {
		b.logger.Warn("failed to edit message", "chat", chatID, "err", err)
	}
}

func (b *Bot) options(kind library.Kind) media.Options {
	if kind == library.Audio {
		return b.audio
	}
	return b.video
}

// start submits fn for req.userID, telling the user when another task is still running.
func (b *Bot) start(ctx context.Context, req request, sub tasks.Submission, status tasks.Status, fn tasks.RunFunc) {
	sub.UserID = req.userID
	sub.UserName = req.userName
	if _, err := b.manager.Start(ctx, sub, fn); err != nil {
		if errors.Is(err, tasks.ErrTaskActive) {
			_ = status.Edit(ctx, busyText)
			return
		}
		b.logger.Error("failed to start download", "err", err)
		_ = status.Edit(ctx, fmt.Sprintf("❌ Could not start the download: `%s`", err))
	}
}

func (b *Bot) startSingle(ctx context.Context, req request, url string, kind library.Kind) {
	status := b.status(req.chatID, req.messageID)
	dir, err := b.resolver.Dir(kind, req.userName, "")
	if err != nil {
		b.logger.Error("failed to prepare download directory", "err", err)
		_ = status.Edit(ctx, folderErrorText)
		return
	}

	sub := tasks.Submission{URL: url, Kind: string(kind), Label: url, OutDir: dir}
	b.start(ctx, req, sub, status, func(ctx context.Context, task *tasks.Task) (*tasks.Result, error) {
		label := b.title(ctx, status, url)
		_ = status.Edit(ctx, fmt.Sprintf("⏳ Starting download of `%s`...", label))
		return b.worker.Download(ctx, tasks.Job{
			Locators: []string{url},
			OutDir:   dir,
			Options:  b.options(kind),
			Status:   status,
			Label:    label,
		})
	})
}

// title looks up the display title of a single item, falling back to the link.
// Lookup errors are left for the worker to report.
func (b *Bot) title(ctx context.Context, status tasks.Status, url string) string {
	_ = status.Edit(ctx, "⏳ Getting video info...")
	listing, err := b.extractor.Resolve(ctx, url)
	if err != nil {
		b.logger.Warn("title lookup failed, using the link", "url", url, "err", err)
		return url
	}
	if listing.Title == "" {
		return url
	}
	return listing.Title
}

func (b *Bot) startYouTubePlaylist(ctx context.Context, req request, url string, kind library.Kind) {
	status := b.status(req.chatID, req.messageID)
	sub := tasks.Submission{URL: url, Kind: string(kind), Label: url}

	b.start(ctx, req, sub, status, func(ctx context.Context, task *tasks.Task) (*tasks.Result, error) {
		_ = status.Edit(ctx, "⏳ Getting playlist info...")
		listing, err := b.extractor.Resolve(ctx, url)
		if err == nil && listing.Title == "" {
			err = fmt.Errorf("%w: playlist has no title", shared.ErrPlaylistNotFound)
		}
		if err != nil {
			return nil, b.failLookup(ctx, status, "❌ Could not get the playlist title. Check that the playlist is public.", err)
		}

		dir, err := b.resolver.Dir(kind, req.userName, listing.Title)
		if err != nil {
			return nil, b.failLookup(ctx, status, folderErrorText, err)
		}

		what := "VIDEO"
		if kind == library.Audio {
			what = "AUDIO"
		}
		_ = status.Edit(ctx, fmt.Sprintf("⏳ Starting %s playlist download `%s` (%d items)...", what, listing.Title, len(listing.Entries)))
		return b.worker.Download(ctx, tasks.Job{
			Locators: []string{url},
			OutDir:   dir,
			Options:  b.options(kind),
			Status:   status,
			Label:    listing.Title,
		})
	})
}

// catalogReady reports whether Spotify links can be handled, telling the user when not.
func (b *Bot) catalogReady(ctx context.Context, req request) bool {
	if b.catalog != nil {
		return true
	}
	b.logger.Error("spotify link received without credentials", "chat", req.chatID, "err", shared.ErrMissingCredentials)
	b.reply(ctx, req.chatID, "❌ Spotify client id / secret are not configured.")
	return false
}

func (b *Bot) startSpotifyTrack(ctx context.Context, req request, url string) {
	if !b.catalogReady(ctx, req) {
		return
	}

	req.messageID = b.reply(ctx, req.chatID, "⏳ Looking up the track...")
	status := b.status(req.chatID, req.messageID)
	sub := tasks.Submission{URL: url, Kind: string(library.Audio), Label: url}

	b.start(ctx, req, sub, status, func(ctx context.Context, task *tasks.Task) (*tasks.Result, error) {
		track, err := b.catalog.TrackInfo(ctx, url)
		if err != nil {
			return nil, b.failLookup(ctx, status, "❌ Could not get the track info.", err)
		}

		dir, err := b.resolver.Dir(library.Audio, req.userName, "")
		if err != nil {
			return nil, b.failLookup(ctx, status, folderErrorText, err)
		}

		_ = status.Edit(ctx, fmt.Sprintf("⏳ Starting download of `%s`...", track.Title))
		return b.worker.Download(ctx, tasks.Job{
			Locators: []string{"ytsearch1:" + track.SearchQuery()},
			OutDir:   dir,
			Options:  b.audio,
			Status:   status,
			Label:    track.Title,
		})
	})
}

func (b *Bot) startSpotifyPlaylist(ctx context.Context, req request, url string) {
	if !b.catalogReady(ctx, req) {
		return
	}

	req.messageID = b.reply(ctx, req.chatID, "⏳ Reading the Spotify playlist...")
	status := b.status(req.chatID, req.messageID)
	sub := tasks.Submission{URL: url, Kind: string(library.Audio), Label: url}

	b.start(ctx, req, sub, status, func(ctx context.Context, task *tasks.Task) (*tasks.Result, error) {
		info, err := b.catalog.PlaylistInfo(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, b.failLookup(ctx, status, playlistErrorText, err)
			}
			b.logger.Warn("playlist info unavailable, using a generic name", "url", url, "err", err)
			id, _ := services.ExtractPlaylistID(url)
			info = &services.Playlist{ID: id, Name: fallbackPlaylistName}
		}
		tracks, err := b.catalog.PlaylistTracks(ctx, url)
		if err != nil {
			return nil, b.failLookup(ctx, status, playlistErrorText, err)
		}
		if len(tracks) == 0 {
			err := fmt.Errorf("%w: playlist %s has no tracks", shared.ErrInvalidInput, info.Name)
			return nil, b.failLookup(ctx, status, "❌ The playlist has no tracks to download.", err)
		}

		folder := watchFolder(req.userName, info.Name)
		dir, err := b.resolver.Folder(folder)
		if err != nil {
			return nil, b.failLookup(ctx, status, folderErrorText, err)
		}

		locators := make([]string, 0, len(tracks))
		for _, t := range tracks {
			locators = append(locators, "ytsearch1:"+t.SearchQuery())
		}

		_ = status.Edit(ctx, fmt.Sprintf("⏳ Checking and downloading `%s` (%d tracks)...", info.Name, len(locators)))
		res, err := b.worker.Download(ctx, tasks.Job{
			Locators: locators,
			OutDir:   dir,
			Options:  b.audio,
			Status:   status,
			Label:    info.Name,
		})
		if err != nil {
			return res, err
		}

		b.watch(ctx, req, url, folder, info)
		return res, nil
	})
}

// watch adds a downloaded playlist to the watchlist so the checker picks up new tracks.
func (b *Bot) watch(ctx context.Context, req request, url, folder string, info *services.Playlist) {
	if b.watchlist == nil {
		return
	}
	id, err := services.ExtractPlaylistID(url)
	if err != nil {
		id = info.ID
	}
	if id == "" {
		b.logger.Warn("cannot watch playlist without id", "url", url)
		return
	}

	if err := b.watchlist.Add(id, library.WatchedPlaylist{URL: url, Folder: folder}); err != nil {
		b.logger.Error("failed to watch playlist", "playlist", id, "err", err)
		return
	}
	b.logger.Info("playlist watched", "playlist", id, "folder", folder)
	b.reply(context.WithoutCancel(ctx), req.chatID,
		fmt.Sprintf("✅ Playlist `%s` is now watched. Use /check to look for new tracks.", info.Name))
}

// failLookup reports a failure that happened before the worker took over the status
// message and returns the task error. Cancellation wins over err. Silent mode only
// hides the cancellation edit; failures are always reported.
func (b *Bot) failLookup(ctx context.Context, status tasks.Status, text string, err error) error {
	editCtx := context.WithoutCancel(ctx)
	if ctx.Err() != nil {
		if !b.Silent() {
			_ = status.Edit(editCtx, "🛑 Download cancelled.")
		}
		return tasks.ErrCancelled
	}

	b.logger.Error(text, "err", err)
	_ = status.Edit(editCtx, text)
	return err
}

// watchFolder is the watchlist folder of a playlist, relative to the audio root.
func watchFolder(user, playlist string) string {
	u := library.Sanitize(user)
	if strings.TrimSpace(u) == "" {
		u = "unknown"
	}
	p := library.Sanitize(playlist)
	if strings.TrimSpace(p) == "" {
		p = fallbackPlaylistName
	}
	return u + "/" + p
}
