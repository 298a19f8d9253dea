package tasks

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/dlbot/internal/media"
)

func ptr(f float64) *float64 { return &f }

func TestFormatSpeed(t *testing.T) {
	tc := []struct {
		in   *float64
		want string
	}{
		{nil, "N/A"},
		{ptr(0), "0 B/s"},
		{ptr(500), "500 B/s"},
		{ptr(1023), "1023 B/s"},
		{ptr(2048), "2.00 KiB/s"},
		{ptr(5 * 1024 * 1024), "5.00 MiB/s"},
		{ptr(1.5 * 1024 * 1024 * 1024), "1.50 GiB/s"},
	}
	for _, tt := range tc {
		if got := FormatSpeed(tt.in); got != tt.want {
			t.Errorf("FormatSpeed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	tc := []struct {
		downloaded, total int64
		want              float64
	}{
		{50, 200, 25.0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{200, 200, 100},
		{50, 0, 0},
		{50, -1, 0},
	}
	for _, tt := range tc {
		if got := Percent(tt.downloaded, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.downloaded, tt.total, got, tt.want)
		}
	}
}

// fakeClock returns the configured instants in order, repeating the last one.
type fakeClock struct {
	times []time.Time
	i     int
}

func (c *fakeClock) Now() time.Time {
	if c.i >= len(c.times) {
		return c.times[len(c.times)-1]
	}
	now := c.times[c.i]
	c.i++
	return now
}

func clockAt(offsets ...time.Duration) *fakeClock {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &fakeClock{}
	for _, o := range offsets {
		c.times = append(c.times, base.Add(o))
	}
	return c
}

func downloading(done, total int64) media.Progress {
	return media.Progress{Status: "downloading", Downloaded: done, Total: total}
}

func TestTracker(t *testing.T) {
	t.Run("updates half a second apart emit once", func(t *testing.T) {
		tr := NewTracker("song", UpdateInterval, clockAt(0, 500*time.Millisecond).Now)

		_, first := tr.Update(downloading(10, 100))
		_, second := tr.Update(downloading(20, 100))
		if !first || second {
			t.Errorf("expected exactly one emit, got %v %v", first, second)
		}
	})

	t.Run("updates three seconds apart emit twice", func(t *testing.T) {
		tr := NewTracker("song", UpdateInterval, clockAt(0, 3*time.Second).Now)

		_, first := tr.Update(downloading(10, 100))
		_, second := tr.Update(downloading(20, 100))
		if !first || !second {
			t.Errorf("expected two emits, got %v %v", first, second)
		}
	})

	t.Run("renders percent speed and label fallback", func(t *testing.T) {
		tr := NewTracker("My Song", UpdateInterval, clockAt(0).Now)

		p := downloading(50, 200)
		p.Speed = ptr(2048)
		text, ok := tr.Update(p)
		if !ok {
			t.Fatal("expected first update to emit")
		}
		for _, want := range []string{"My Song", "25.0%", "2.00 KiB/s"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in %q", want, text)
			}
		}
	})

	t.Run("prefers the tool filename", func(t *testing.T) {
		tr := NewTracker("label", UpdateInterval, clockAt(0).Now)
		p := downloading(1, 0)
		p.Filename = "Song.webm"

		text, _ := tr.Update(p)
		if !strings.Contains(text, "Song.webm") || strings.Contains(text, "label") {
			t.Errorf("unexpected text %q", text)
		}
		if !strings.Contains(text, "0.0%") || !strings.Contains(text, "N/A") {
			t.Errorf("expected unknown total and speed, got %q", text)
		}
	})

	t.Run("ignores non download statuses", func(t *testing.T) {
		tr := NewTracker("label", UpdateInterval, clockAt(0).Now)
		if _, ok := tr.Update(media.Progress{Status: "finished", Filename: "x.mp3"}); ok {
			t.Error("finished status must not emit")
		}
		if tr.Snapshot().Filename != "x.mp3" {
			t.Error("filename should still be recorded")
		}
		if !tr.Snapshot().LastEmitted.IsZero() {
			t.Error("nothing was emitted yet")
		}
	})
}
