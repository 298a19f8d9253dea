// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/services"
)

// FakeExtractor is a test double for [media.Extractor].
//
// Locators without an entry in Listings resolve to a single item whose id is
// the locator text, so search queries map to stable archive keys.
type FakeExtractor struct {
	Listings   map[string]*media.Listing
	ResolveErr map[string]error
	// FetchErr fails the fetch of the entry with the given id.
	FetchErr map[string]error
	// Progress is replayed through the callback on every fetch.
	Progress []media.Progress
	// OnProgress runs after each replayed progress report.
	OnProgress func(i int)
	// Block, when set, holds each fetch until it is closed or the context ends.
	Block chan struct{}
	// Started receives the id of each entry as its fetch begins, if non-nil.
	Started chan string
	// IgnoreCancel makes blocked fetches wait for Block even after cancellation.
	IgnoreCancel bool

	mu       sync.Mutex
	resolved []string
	fetched  []string
}

func (f *FakeExtractor) Resolve(ctx context.Context, locator string) (*media.Listing, error) {
	f.mu.Lock()
	f.resolved = append(f.resolved, locator)
	f.mu.Unlock()

	if err := f.ResolveErr[locator]; err != nil {
		return nil, err
	}
	if l, ok := f.Listings[locator]; ok {
		return l, nil
	}

	id := strings.TrimPrefix(locator, "ytsearch1:")
	id = strings.ReplaceAll(id, " ", "_")
	title := strings.TrimPrefix(locator, "ytsearch1:")
	return &media.Listing{Title: title, Entries: []media.Entry{{ID: id, Extractor: "Youtube", URL: locator, Title: title}}}, nil
}

func (f *FakeExtractor) Fetch(ctx context.Context, req media.FetchRequest, progress func(media.Progress)) (media.Item, error) {
	if f.Started != nil {
		f.Started <- req.Entry.ID
	}

	for i, p := range f.Progress {
		if progress != nil {
			progress(p)
		}
		if f.OnProgress != nil {
			f.OnProgress(i)
		}
	}

	if f.Block != nil {
		if f.IgnoreCancel {
			<-f.Block
		} else {
			select {
			case <-f.Block:
			case <-ctx.Done():
				return media.Item{}, ctx.Err()
			}
		}
	}

	if err := f.FetchErr[req.Entry.ID]; err != nil {
		return media.Item{}, err
	}

	f.mu.Lock()
	f.fetched = append(f.fetched, req.Entry.ID)
	f.mu.Unlock()
	return media.Item{Entry: req.Entry, Filename: req.Entry.Title + ".mp3"}, nil
}

// Fetched returns the ids of successful fetches in order.
func (f *FakeExtractor) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// Resolved returns every locator passed to Resolve.
func (f *FakeExtractor) Resolved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.resolved...)
}

// RecordingStatus records every edit of a status message.
type RecordingStatus struct {
	Err error

	mu    sync.Mutex
	edits []string
}

func (s *RecordingStatus) Edit(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, text)
	return s.Err
}

// Edits returns a copy of all edits so far.
func (s *RecordingStatus) Edits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.edits...)
}

// Last returns the most recent edit, or "".
func (s *RecordingStatus) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.edits) == 0 {
		return ""
	}
	return s.edits[len(s.edits)-1]
}

// FakeCatalog is a test double for [services.MusicCatalog].
type FakeCatalog struct {
	Tracks    map[string]services.Track
	Playlists map[string]services.Playlist
	Contents  map[string][]services.Track
	Err       error
}

func (c *FakeCatalog) Authenticate(ctx context.Context) error { return c.Err }

func (c *FakeCatalog) TrackInfo(ctx context.Context, trackURL string) (*services.Track, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	t, ok := c.Tracks[trackURL]
	if !ok {
		return nil, errors.New("track not found")
	}
	return &t, nil
}

func (c *FakeCatalog) PlaylistInfo(ctx context.Context, playlistURL string) (*services.Playlist, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	p, ok := c.Playlists[playlistURL]
	if !ok {
		return nil, errors.New("playlist not found")
	}
	return &p, nil
}

func (c *FakeCatalog) PlaylistTracks(ctx context.Context, playlistURL string) ([]services.Track, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	tracks, ok := c.Contents[playlistURL]
	if !ok {
		return nil, errors.New("playlist not found")
	}
	return tracks, nil
}

func (c *FakeCatalog) Name() string { return "fake" }

// FakeNotifier records owner notifications.
type FakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *FakeNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

// Messages returns a copy of the notifications.
func (n *FakeNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// LockedBuffer is a log sink safe for concurrent writers. Loggers derived with
// With each hold their own lock, so a shared plain buffer would race.
type LockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
