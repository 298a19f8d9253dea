package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"
)

const progressInterval = 500 * time.Millisecond

// Ytdlp is an [Extractor] backed by the yt-dlp binary.
type Ytdlp struct {
	logger *log.Logger
}

// NewYtdlp returns an extractor that runs yt-dlp from PATH (or go-ytdlp's cache).
func NewYtdlp(logger *log.Logger) *Ytdlp {
	if logger == nil {
		logger = log.Default()
	}
	return &Ytdlp{logger: logger}
}

// Install downloads a yt-dlp build into go-ytdlp's cache when none is available.
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("%w: yt-dlp install failed: %v", ErrToolMissing, err)
	}
	return nil
}

// FFmpegAvailable reports whether ffmpeg is on PATH.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Resolve runs a flat extraction of locator and returns its entries.
func (y *Ytdlp) Resolve(ctx context.Context, locator string) (*Listing, error) {
	dl := ytdlp.New().
		FlatPlaylist().
		DumpSingleJSON().
		NoWarnings().
		IgnoreErrors()

	result, err := dl.Run(ctx, locator)
	if err != nil {
		return nil, wrapRunError(err, result)
	}

	listing, err := parseListing([]byte(result.Stdout))
	if err != nil {
		return nil, fmt.Errorf("failed to read yt-dlp output for %s: %w", locator, err)
	}
	return listing, nil
}

// Fetch downloads req.Entry into req.OutDir.
func (y *Ytdlp) Fetch(ctx context.Context, req FetchRequest, progress func(Progress)) (Item, error) {
	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		Output(filepath.Join(req.OutDir, "%(title)s.%(ext)s"))

	opts := req.Options
	if opts.Format != "" {
		dl.Format(opts.Format)
	}
	if opts.ExtractAudio {
		dl.ExtractAudio()
		if opts.AudioFormat != "" {
			dl.AudioFormat(opts.AudioFormat)
		}
		if opts.AudioQuality != "" {
			dl.AudioQuality(opts.AudioQuality)
		}
	}
	if opts.EmbedMetadata {
		dl.EmbedMetadata()
	}
	if opts.EmbedThumbnail {
		dl.EmbedThumbnail()
	}
	if opts.MergeFormat != "" {
		dl.MergeOutputFormat(opts.MergeFormat)
	}

	var (
		mu       sync.Mutex
		filename string
		meter    speedMeter
	)
	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		mu.Lock()
		p := toProgress(update, &meter, time.Now())
		if p.Filename != "" {
			filename = p.Filename
		}
		mu.Unlock()
		if progress != nil {
			progress(p)
		}
	})

	target := req.Entry.URL
	if target == "" {
		target = req.Entry.ID
	}

	result, err := dl.Run(ctx, target)
	if err != nil {
		return Item{}, wrapRunError(err, result)
	}

	mu.Lock()
	defer mu.Unlock()
	y.logger.Debug("fetched", "key", req.Entry.Key(), "file", filename)
	return Item{Entry: req.Entry, Filename: filename}, nil
}

func toProgress(update ytdlp.ProgressUpdate, meter *speedMeter, now time.Time) Progress {
	p := Progress{
		Status:     string(update.Status),
		Downloaded: int64(update.DownloadedBytes),
		Total:      int64(update.TotalBytes),
	}
	if update.Filename != "" {
		p.Filename = filepath.Base(update.Filename)
	}
	p.Speed = meter.sample(update, now)
	return p
}

// speedMeter derives the current transfer rate from consecutive progress updates.
type speedMeter struct {
	bytes int64
	at    time.Time
}

// sample records update and returns the rate since the previous sample. The first
// sample of a file falls back to the average since the download started.
func (m *speedMeter) sample(update ytdlp.ProgressUpdate, now time.Time) *float64 {
	downloaded := int64(update.DownloadedBytes)
	prev := *m
	m.bytes, m.at = downloaded, now

	if !prev.at.IsZero() && downloaded >= prev.bytes {
		dt := now.Sub(prev.at).Seconds()
		if dt <= 0 {
			return nil
		}
		speed := float64(downloaded-prev.bytes) / dt
		return &speed
	}

	if update.Started.IsZero() || downloaded <= 0 {
		return nil
	}
	elapsed := now.Sub(update.Started).Seconds()
	if elapsed <= 0 {
		return nil
	}
	speed := float64(downloaded) / elapsed
	return &speed
}

// wrapRunError condenses a failed yt-dlp run into an error whose text ends with
// the tool's final message, tagging missing binaries with [ErrToolMissing].
func wrapRunError(err error, result *ytdlp.Result) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: yt-dlp: %v", ErrToolMissing, err)
	}

	detail := err.Error()
	if result != nil && strings.TrimSpace(result.Stderr) != "" {
		detail = LastLine(result.Stderr)
	}
	if mentionsMissingFFmpeg(detail) {
		return fmt.Errorf("%w: ffmpeg\n%s", ErrToolMissing, detail)
	}
	return fmt.Errorf("yt-dlp failed: %w\n%s", err, detail)
}

func mentionsMissingFFmpeg(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "ffmpeg") && (strings.Contains(s, "not found") || strings.Contains(s, "not installed") || strings.Contains(s, "ffmpeg-location"))
}

type flatInfo struct {
	Type         string     `json:"_type"`
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	ExtractorKey string     `json:"extractor_key"`
	IEKey        string     `json:"ie_key"`
	URL          string     `json:"url"`
	WebpageURL   string     `json:"webpage_url"`
	Entries      []flatInfo `json:"entries"`
}

func (f flatInfo) entry() Entry {
	extractor := f.ExtractorKey
	if extractor == "" {
		extractor = f.IEKey
	}
	url := f.WebpageURL
	if url == "" {
		url = f.URL
	}
	return Entry{ID: f.ID, Extractor: extractor, URL: url, Title: f.Title}
}

// parseListing decodes `yt-dlp --flat-playlist --dump-single-json` output.
func parseListing(data []byte) (*Listing, error) {
	var info flatInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	if info.Type != "playlist" {
		if info.ID == "" {
			return nil, fmt.Errorf("no item id in output")
		}
		return &Listing{Title: info.Title, Entries: []Entry{info.entry()}}, nil
	}

	listing := &Listing{Title: info.Title}
	for _, e := range info.Entries {
		if e.ID == "" {
			continue
		}
		listing.Entries = append(listing.Entries, e.entry())
	}
	return listing, nil
}
