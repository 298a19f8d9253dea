package tasks

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/desertthunder/dlbot/internal/media"
	"golang.org/x/time/rate"
)

// UpdateInterval is the minimum gap between two visible progress edits.
const UpdateInterval = 2 * time.Second

// FormatSpeed renders bytes per second with 1024 based units. nil means unknown.
func FormatSpeed(speed *float64) string {
	if speed == nil {
		return "N/A"
	}
	s := *speed
	switch {
	case s < 1024:
		return strconv.FormatFloat(s, 'f', -1, 64) + " B/s"
	case s < 1024*1024:
		return fmt.Sprintf("%.2f KiB/s", s/1024)
	case s < 1024*1024*1024:
		return fmt.Sprintf("%.2f MiB/s", s/(1024*1024))
	default:
		return fmt.Sprintf("%.2f GiB/s", s/(1024*1024*1024))
	}
}

// Percent returns downloaded/total as a percentage rounded to one decimal, or 0 when total is unknown.
func Percent(downloaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(downloaded)/float64(total)*1000) / 10
}

// Snapshot is the last progress state seen for a task.
type Snapshot struct {
	Downloaded  int64
	Total       int64
	Speed       *float64
	Filename    string
	LastEmitted time.Time
}

// Tracker turns raw progress reports into throttled status lines.
type Tracker struct {
	label   string
	clock   func() time.Time
	limiter *rate.Limiter
	snap    Snapshot
}

// NewTracker returns a tracker emitting at most one line per interval. A nil clock uses [time.Now].
func NewTracker(label string, interval time.Duration, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		label:   label,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	return t.snap
}

// Update records p and returns the text to show when an edit is due.
func (t *Tracker) Update(p media.Progress) (string, bool) {
	if p.Filename != "" {
		t.snap.Filename = p.Filename
	}
	if p.Status != "" && p.Status != "downloading" {
		return "", false
	}

	t.snap.Downloaded = p.Downloaded
	t.snap.Total = p.Total
	t.snap.Speed = p.Speed

	now := t.clock()
	if !t.limiter.AllowN(now, 1) {
		return "", false
	}
	t.snap.LastEmitted = now
	return t.render(), true
}

func (t *Tracker) render() string {
	name := t.snap.Filename
	if name == "" {
		name = t.label
	}
	return fmt.Sprintf("⏳ Downloading `%s`...\nProgress: %.1f%% | Speed: %s",
		name, Percent(t.snap.Downloaded, t.snap.Total), FormatSpeed(t.snap.Speed))
}
