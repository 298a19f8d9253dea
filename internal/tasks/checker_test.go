package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/services"
	"github.com/desertthunder/dlbot/internal/shared"
	tu "github.com/desertthunder/dlbot/internal/testing"
)

type checkerFixture struct {
	*workerFixture
	watchlist *library.Watchlist
	catalog   *tu.FakeCatalog
	notifier  *tu.FakeNotifier
	resolver  library.Resolver
}

func newCheckerFixture(t *testing.T) *checkerFixture {
	t.Helper()
	dir := t.TempDir()
	f := newFixture(t)
	return &checkerFixture{
		workerFixture: f,
		watchlist:     library.NewWatchlist(filepath.Join(dir, "watchlist.json"), log.New(f.logs)),
		catalog:       &tu.FakeCatalog{Contents: map[string][]services.Track{}},
		notifier:      &tu.FakeNotifier{},
		resolver:      library.Resolver{Base: dir, AudioDir: "Audio", VideoDir: "Video"},
	}
}

func (f *checkerFixture) checker(catalog services.MusicCatalog, notifier Notifier) *Checker {
	return NewChecker(CheckerOpts{
		Watchlist: f.watchlist,
		Catalog:   catalog,
		Worker:    f.worker(nil),
		Resolver:  f.resolver,
		Notifier:  notifier,
		Interval:  time.Hour,
		Logger:    log.New(f.logs),
	})
}

func (f *checkerFixture) watch(t *testing.T, id, url, folder string) {
	t.Helper()
	if err := f.watchlist.Add(id, library.WatchedPlaylist{URL: url, Folder: folder}); err != nil {
		t.Fatalf("failed to watch %s: %v", id, err)
	}
}

func TestCheckerRunOnce(t *testing.T) {
	t.Run("second pass downloads nothing new", func(t *testing.T) {
		f := newCheckerFixture(t)
		url := "https://open.spotify.com/playlist/p1"
		f.watch(t, "p1", url, "Spotify/Mix")
		f.catalog.Contents[url] = []services.Track{
			{Title: "Song A", Artist: "Artist"},
			{Title: "Song B", Artist: "Artist"},
		}
		c := f.checker(f.catalog, f.notifier)

		first, err := c.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.Tracks != 2 || first.Downloaded != 2 {
			t.Errorf("unexpected first report %+v", first)
		}
		if !f.archive.Contains("youtube Song_A_Artist") || !f.archive.Contains("youtube Song_B_Artist") {
			t.Error("expected both tracks archived")
		}

		second, err := c.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.Downloaded != 0 || second.Skipped != 2 {
			t.Errorf("expected everything skipped, got %+v", second)
		}
		if len(f.extractor.Fetched()) != 2 {
			t.Errorf("expected two fetches overall, got %v", f.extractor.Fetched())
		}
		tu.AssertDirExists(t, filepath.Join(f.resolver.Base, "Audio", "Spotify", "Mix"))

		msgs := f.notifier.Messages()
		if len(msgs) != 2 || !strings.Contains(msgs[0], "2 tracks checked") || !strings.Contains(msgs[1], "0 new") {
			t.Errorf("unexpected notifications %q", msgs)
		}
	})

	t.Run("search locators use title and artist", func(t *testing.T) {
		f := newCheckerFixture(t)
		f.watch(t, "p1", "pl", "Mix")
		f.catalog.Contents["pl"] = []services.Track{{Title: "Intro", Artist: "The XX"}, {Title: "Solo"}}

		if _, err := f.checker(f.catalog, f.notifier).RunOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
		got := f.extractor.Resolved()
		if len(got) != 2 || got[0] != "ytsearch1:Intro The XX" || got[1] != "ytsearch1:Solo" {
			t.Errorf("unexpected locators %q", got)
		}
	})

	t.Run("no notification without tracks", func(t *testing.T) {
		f := newCheckerFixture(t)
		f.watch(t, "p1", "pl", "Mix")
		f.catalog.Contents["pl"] = nil

		report, err := f.checker(f.catalog, f.notifier).RunOnce(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if report.Playlists != 1 || report.Tracks != 0 {
			t.Errorf("unexpected report %+v", report)
		}
		if len(f.notifier.Messages()) != 0 {
			t.Errorf("expected no notification, got %q", f.notifier.Messages())
		}
		if !strings.Contains(f.logs.String(), "no tracks checked") {
			t.Error("expected a log line instead")
		}
	})

	t.Run("empty watchlist", func(t *testing.T) {
		f := newCheckerFixture(t)
		report, err := f.checker(f.catalog, f.notifier).RunOnce(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if report.Playlists != 0 || len(f.notifier.Messages()) != 0 {
			t.Errorf("unexpected report %+v", report)
		}
	})

	t.Run("a failing playlist does not stop the cycle", func(t *testing.T) {
		f := newCheckerFixture(t)
		f.watch(t, "a", "missing", "A")
		f.watch(t, "b", "pl", "B")
		f.catalog.Contents["pl"] = []services.Track{{Title: "Song", Artist: "X"}}

		report, err := f.checker(f.catalog, f.notifier).RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Errors) != 1 || !strings.HasPrefix(report.Errors[0].Error(), "a:") {
			t.Errorf("expected one error for playlist a, got %v", report.Errors)
		}
		if report.Downloaded != 1 {
			t.Errorf("playlist b should still download, got %+v", report)
		}
	})

	t.Run("missing catalog", func(t *testing.T) {
		f := newCheckerFixture(t)
		f.watch(t, "p1", "pl", "Mix")

		_, err := f.checker(nil, f.notifier).RunOnce(context.Background())
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

// cancelNotifier cancels the checker loop once it has been notified.
type cancelNotifier struct {
	tu.FakeNotifier
	cancel context.CancelFunc
}

func (n *cancelNotifier) Notify(ctx context.Context, text string) error {
	defer n.cancel()
	return n.FakeNotifier.Notify(ctx, text)
}

func TestCheckerRun(t *testing.T) {
	t.Run("stops when cancelled", func(t *testing.T) {
		f := newCheckerFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := f.checker(f.catalog, f.notifier).Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("notifies the owner on failure", func(t *testing.T) {
		f := newCheckerFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		notifier := &cancelNotifier{cancel: cancel}

		done := make(chan error, 1)
		go func() { done <- f.checker(nil, notifier).Run(ctx) }()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("checker did not stop")
		}
		msgs := notifier.Messages()
		if len(msgs) != 1 || !strings.HasPrefix(msgs[0], "❌ Playlist check failed") {
			t.Errorf("unexpected notifications %q", msgs)
		}
	})
}
