// package media wraps the external extraction tool (yt-dlp) behind [Extractor]
package media

import (
	"context"
	"errors"
	"strings"
)

// ErrToolMissing marks failures caused by a missing yt-dlp or ffmpeg binary.
var ErrToolMissing = errors.New("required tool is not installed")

// Entry is one downloadable item discovered for a locator.
type Entry struct {
	ID        string
	Extractor string
	URL       string
	Title     string
}

// Key returns the archive line identifying e.
func (e Entry) Key() string {
	return strings.ToLower(e.Extractor) + " " + e.ID
}

// Listing is the result of resolving a locator: a single item or a playlist.
type Listing struct {
	Title   string
	Entries []Entry
}

// Options select the format and post-processing of a download.
type Options struct {
	Format         string
	ExtractAudio   bool
	AudioFormat    string
	AudioQuality   string
	EmbedMetadata  bool
	EmbedThumbnail bool
	MergeFormat    string
}

// AudioOptions transcodes the best audio stream and tags it.
func AudioOptions(format, quality string) Options {
	return Options{
		Format:         "bestaudio/best",
		ExtractAudio:   true,
		AudioFormat:    format,
		AudioQuality:   quality,
		EmbedMetadata:  true,
		EmbedThumbnail: true,
	}
}

// VideoOptions downloads format and merges the streams into container.
func VideoOptions(format, container string) Options {
	return Options{
		Format:        format,
		EmbedMetadata: true,
		MergeFormat:   container,
	}
}

// NeedsFFmpeg reports whether post-processing requires ffmpeg.
func (o Options) NeedsFFmpeg() bool {
	return o.ExtractAudio || o.EmbedThumbnail || o.MergeFormat != ""
}

// Progress is one progress report from a running fetch.
type Progress struct {
	Status     string
	Downloaded int64
	Total      int64
	// Speed in bytes per second, nil while unknown.
	Speed    *float64
	Filename string
}

// FetchRequest describes a single item download.
type FetchRequest struct {
	Entry   Entry
	OutDir  string
	Options Options
}

// Item is a finished download.
type Item struct {
	Entry    Entry
	Filename string
}

// Extractor resolves locators to entries and downloads them.
type Extractor interface {
	// Resolve expands a URL or search query ("ytsearch1:...") without downloading.
	Resolve(ctx context.Context, locator string) (*Listing, error)

	// Fetch downloads one entry, calling progress from the fetching goroutine.
	Fetch(ctx context.Context, req FetchRequest, progress func(Progress)) (Item, error)
}

// LastLine returns the last non-empty line of s.
func LastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
