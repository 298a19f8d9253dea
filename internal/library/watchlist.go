package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// WatchedPlaylist is one playlist revisited by the checker.
type WatchedPlaylist struct {
	URL    string `json:"url"`
	Folder string `json:"folder"`
}

// WatchEntry pairs a [WatchedPlaylist] with its id for ordered listings.
type WatchEntry struct {
	ID string
	WatchedPlaylist
}

// Watchlist is the JSON file of watched playlists.
type Watchlist struct {
	path   string
	mu     sync.Mutex
	logger *log.Logger
}

// NewWatchlist returns a watchlist stored at path.
func NewWatchlist(path string, logger *log.Logger) *Watchlist {
	if logger == nil {
		logger = log.Default()
	}
	return &Watchlist{path: path, logger: logger}
}

// Path returns the watchlist file location.
func (w *Watchlist) Path() string {
	return w.path
}

// Load reads every watched playlist. A missing or unreadable file yields an empty map.
func (w *Watchlist) Load() map[string]WatchedPlaylist {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.load()
}

func (w *Watchlist) load() map[string]WatchedPlaylist {
	playlists := make(map[string]WatchedPlaylist)

	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return playlists
	}
	if err != nil {
		w.logger.Error("failed to read watchlist", "path", w.path, "err", err)
		return playlists
	}
	if len(data) == 0 {
		return playlists
	}
	if err := json.Unmarshal(data, &playlists); err != nil {
		w.logger.Error("watchlist is corrupt, starting empty", "path", w.path, "err", err)
		return make(map[string]WatchedPlaylist)
	}
	return playlists
}

// Save rewrites the whole file with playlists.
func (w *Watchlist) Save(playlists map[string]WatchedPlaylist) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.save(playlists)
}

func (w *Watchlist) save(playlists map[string]WatchedPlaylist) error {
	data, err := json.MarshalIndent(playlists, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode watchlist: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create watchlist directory: %w", err)
		}
	}
	if err := os.WriteFile(w.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write watchlist: %w", err)
	}
	return nil
}

// Add records a playlist, replacing any entry with the same id.
func (w *Watchlist) Add(id string, p WatchedPlaylist) error {
	if id == "" {
		return fmt.Errorf("empty playlist id")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	playlists := w.load()
	playlists[id] = p
	return w.save(playlists)
}

// List returns the watched playlists ordered by id.
func (w *Watchlist) List() []WatchEntry {
	playlists := w.Load()
	entries := make([]WatchEntry, 0, len(playlists))
	for id, p := range playlists {
		entries = append(entries, WatchEntry{ID: id, WatchedPlaylist: p})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}
