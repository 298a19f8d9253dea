package library

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSanitize(t *testing.T) {
	tc := []struct {
		in, want string
	}{
		{"plain name", "plain name"},
		{`a\b/c*d?e:f"g<h>i|j`, "abcdefghij"},
		{"Žluťoučký kůň", "Žluťoučký kůň"},
		{"", ""},
	}
	for _, tt := range tc {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolver(t *testing.T) {
	base := t.TempDir()
	r := Resolver{Base: base, AudioDir: "Audio", VideoDir: "Video"}

	t.Run("user directory", func(t *testing.T) {
		dir, err := r.Dir(Audio, "jan:novak", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := filepath.Join(base, "Audio", "jannovak")
		if dir != want {
			t.Errorf("expected %s, got %s", want, dir)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory to exist: %v", err)
		}
	})

	t.Run("playlist directory", func(t *testing.T) {
		dir, err := r.Dir(Video, "jan", "Best of: 2024?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := filepath.Join(base, "Video", "jan", "Best of 2024")
		if dir != want {
			t.Errorf("expected %s, got %s", want, dir)
		}
	})

	t.Run("names reduced to nothing fall back", func(t *testing.T) {
		got := r.Path(Audio, "???", "")
		if filepath.Base(got) != "unknown" {
			t.Errorf("expected unknown user folder, got %s", got)
		}
	})

	t.Run("watch folder stays under the audio root", func(t *testing.T) {
		dir, err := r.Folder("../jan/Mix")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := filepath.Join(base, "Audio", "jan", "Mix")
		if dir != want {
			t.Errorf("expected %s, got %s", want, dir)
		}
	})

	t.Run("output template", func(t *testing.T) {
		got := OutputTemplate(filepath.Join("x", "y"))
		if got != filepath.Join("x", "y", "%(title)s.%(ext)s") {
			t.Errorf("unexpected template %s", got)
		}
	})
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Audio "); err != nil || k != Audio {
		t.Errorf("expected audio, got %v %v", k, err)
	}
	if _, err := ParseKind("podcast"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.txt")
	if err := os.WriteFile(path, []byte("youtube aaa\n\nyoutube bbb\n"), 0644); err != nil {
		t.Fatalf("failed to seed archive: %v", err)
	}

	a, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	if a.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", a.Len())
	}
	if !a.Contains("youtube aaa") {
		t.Error("expected seeded entry")
	}

	if err := a.Add(ArchiveKey("Youtube", "ccc")); err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if err := a.Add("youtube ccc"); err != nil {
		t.Fatalf("failed to add duplicate: %v", err)
	}

	content, _ := os.ReadFile(path)
	if strings.Count(string(content), "youtube ccc") != 1 {
		t.Errorf("expected single appended line, got %q", content)
	}

	reopened, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	if !reopened.Contains("youtube ccc") {
		t.Error("expected entry to survive reopen")
	}

	if err := a.Add("  "); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestArchiveMissingFile(t *testing.T) {
	a, err := OpenArchive(filepath.Join(t.TempDir(), "none.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("expected empty archive, got %d", a.Len())
	}
}

func TestWatchlist(t *testing.T) {
	logger := log.New(&bytes.Buffer{})

	t.Run("add and list", func(t *testing.T) {
		w := NewWatchlist(filepath.Join(t.TempDir(), "playlists.json"), logger)

		if got := w.Load(); len(got) != 0 {
			t.Errorf("expected empty watchlist, got %v", got)
		}
		if err := w.Add("pl2", WatchedPlaylist{URL: "https://open.spotify.com/playlist/pl2", Folder: "jan/Two"}); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
		if err := w.Add("pl1", WatchedPlaylist{URL: "https://open.spotify.com/playlist/pl1", Folder: "jan/One"}); err != nil {
			t.Fatalf("failed to add: %v", err)
		}

		entries := w.List()
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].ID != "pl1" || entries[0].Folder != "jan/One" {
			t.Errorf("unexpected first entry %+v", entries[0])
		}
	})

	t.Run("file format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playlists.json")
		w := NewWatchlist(path, logger)
		if err := w.Add("abc", WatchedPlaylist{URL: "u", Folder: "f"}); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
		content, _ := os.ReadFile(path)
		if !strings.Contains(string(content), `"abc": {`) || !strings.Contains(string(content), `"folder": "f"`) {
			t.Errorf("unexpected file content %s", content)
		}
	})

	t.Run("corrupt file loads empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playlists.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
		w := NewWatchlist(path, logger)
		if got := w.Load(); len(got) != 0 {
			t.Errorf("expected empty map for corrupt file, got %v", got)
		}
		if err := w.Add("x", WatchedPlaylist{URL: "u"}); err != nil {
			t.Fatalf("expected add to recover file: %v", err)
		}
		if len(w.Load()) != 1 {
			t.Error("expected recovered watchlist to hold one entry")
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		w := NewWatchlist(filepath.Join(t.TempDir(), "p.json"), logger)
		if err := w.Add("", WatchedPlaylist{}); err == nil {
			t.Error("expected error")
		}
	})
}
