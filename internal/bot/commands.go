package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/dlbot/internal/formatter"
	"github.com/desertthunder/dlbot/internal/models"
	"github.com/desertthunder/dlbot/internal/shared"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

func commandList() []Command {
	return []Command{
		{"download", "Download from a URL (YouTube, TikTok, Instagram, Spotify)"},
		{"stopdl", "Stop your running download"},
		{"check", "Check watched playlists for new tracks now"},
		{"history", "Show recent downloads"},
		{"silent", "Toggle silent mode (hide cancellation messages)"},
		{"sync", "Register the bot commands"},
		{"restart", "Restart the bot"},
		{"shutdown", "Stop the bot"},
		{"help", "Show help"},
	}
}

const helpText = "Send me a link or use `/download <url>`.\n\n" +
	"Supported: YouTube (videos and playlists), TikTok, Instagram, Spotify (tracks and playlists).\n" +
	"`/stopdl` stops your running download.\n" +
	"`/check` looks for new tracks in watched Spotify playlists.\n" +
	"`/history [n]` lists recent downloads."

// parseCommand splits "/name@bot args" into name and args. ok is false for plain text.
func parseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func isLink(text string) bool {
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") || strings.HasPrefix(text, "spotify:")
}

func (b *Bot) handleMessage(ctx context.Context, req request) {
	name, args, ok := parseCommand(req.text)
	if !ok {
		if !isLink(req.text) {
			return
		}
		name, args = "download", req.text
	}

	logger := b.logger.With("command", name, "user", req.userID)

	switch name {
	case "start", "help":
		b.reply(ctx, req.chatID, helpText)
		return
	case "stopdl":
		b.handleStop(ctx, req)
		return
	}
	if !isKnown(name) {
		logger.Debug("ignoring unknown command")
		return
	}

	if !b.authorized(name, req.userID, req.chatID) {
		logger.Warn("unauthorized command", "chat", req.chatID)
		b.reply(ctx, req.chatID, "⛔ You are not allowed to use this command.")
		return
	}

	switch name {
	case "download", "dl":
		b.handleDownload(ctx, req, args)
	case "check":
		b.handleCheck(ctx, req)
	case "history":
		b.handleHistory(ctx, req, args)
	case "silent":
		b.handleSilent(ctx, req)
	case "sync":
		b.handleSync(ctx, req)
	case "restart":
		b.handleStopBot(ctx, req, shared.ErrRestartRequested)
	case "shutdown":
		b.handleStopBot(ctx, req, shared.ErrShutdownRequested)
	}
}

func isKnown(name string) bool {
	if name == "dl" {
		return true
	}
	for _, c := range commandList() {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (b *Bot) handleStop(ctx context.Context, req request) {
	if b.manager.Registry().Cancel(req.userID) {
		b.logger.Info("download stop requested", "user", req.userID)
		b.reply(ctx, req.chatID, "✅ Stopping your download. It may take a moment for the process to end.")
		return
	}
	b.reply(ctx, req.chatID, "✅ No download is running.")
}

func (b *Bot) handleCheck(ctx context.Context, req request) {
	if b.checker == nil {
		b.reply(ctx, req.chatID, "❌ The playlist checker is not configured.")
		return
	}

	b.reply(ctx, req.chatID, "⏳ Checking watched playlists for new tracks...")
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		report, err := b.checker.RunOnce(ctx)
		if err != nil {
			b.logger.Error("manual playlist check failed", "err", err)
			b.reply(ctx, req.chatID, fmt.Sprintf("❌ Check failed: `%s`", err))
			return
		}
		b.reply(ctx, req.chatID, fmt.Sprintf("✅ Check finished: %d playlists, %d tracks, %d new.",
			report.Playlists, report.Tracks, report.Downloaded))
	}()
}

func (b *Bot) handleHistory(ctx context.Context, req request, args string) {
	if b.history == nil {
		b.reply(ctx, req.chatID, "❌ Download history is not available.")
		return
	}

	limit := defaultHistoryLimit
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			b.reply(ctx, req.chatID, "❌ Usage: `/history [count]`")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var (
		downloads []*models.Download
		err       error
	)
	if b.ownerID != 0 && req.userID == b.ownerID {
		downloads, err = b.history.Recent(limit)
	} else {
		downloads, err = b.history.ByUser(req.userID, limit)
	}
	if err != nil {
		b.logger.Error("failed to read history", "err", err)
		b.reply(ctx, req.chatID, "❌ Could not read the download history.")
		return
	}
	b.reply(ctx, req.chatID, formatter.HistoryMessage(downloads))
}

func (b *Bot) handleSilent(ctx context.Context, req request) {
	on := !b.silent.Load()
	b.silent.Store(on)

	state := "off"
	if on {
		state = "on"
	}
	b.logger.Info("silent mode toggled", "on", on)
	b.reply(ctx, req.chatID, fmt.Sprintf("🔇 Silent mode is `%s`.", state))
}

func (b *Bot) handleSync(ctx context.Context, req request) {
	if err := b.messenger.SetCommands(ctx, commandList()); err != nil {
		b.logger.Error("failed to register commands", "err", err)
		b.reply(ctx, req.chatID, "❌ Could not register the commands.")
		return
	}
	b.reply(ctx, req.chatID, "✅ Commands registered.")
}

func (b *Bot) handleStopBot(ctx context.Context, req request, cause error) {
	verb := "Shutting down"
	notice := "🛑 Bot was shut down with `/shutdown`."
	if cause == shared.ErrRestartRequested {
		verb = "Restarting"
		notice = "🛑 Bot was restarted with `/restart`."
	}

	b.logger.Info(strings.ToLower(verb), "user", req.userID)
	b.reply(ctx, req.chatID, "🛑 "+verb+" the bot...")
	if err := b.notifier.Notify(ctx, notice); err != nil {
		b.logger.Warn("failed to notify owner", "err", err)
	}
	b.stop(cause)
}
