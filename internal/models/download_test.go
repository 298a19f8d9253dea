package models

import (
	"testing"
	"time"
)

var zero time.Time

func TestDownload(t *testing.T) {
	t.Run("NewDownload", func(t *testing.T) {
		d := NewDownload(7, "jan", "https://youtu.be/x", "audio", "x")
		if d.Status() != StatusRunning {
			t.Errorf("expected running, got %s", d.Status())
		}
		if d.FinishedAt() != nil || d.Duration() != 0 {
			t.Error("running download must not be finished")
		}
		if err := d.Validate(); err != nil {
			t.Errorf("expected valid download, got %v", err)
		}
	})

	t.Run("Finish", func(t *testing.T) {
		d := NewDownload(7, "jan", "https://youtu.be/x", "audio", "x")
		d.Finish(StatusCompleted, 2, 1, 0, "")
		if d.FinishedAt() == nil {
			t.Fatal("expected finished_at to be set")
		}
		if d.Downloaded() != 2 || d.Skipped() != 1 {
			t.Errorf("unexpected counts %d/%d", d.Downloaded(), d.Skipped())
		}
		if err := d.Validate(); err != nil {
			t.Errorf("expected valid download, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name string
			d    *Download
		}{
			{"missing url", NewDownload(1, "", "", "audio", "")},
			{"missing kind", NewDownload(1, "", "u", "", "")},
			{"bad status", RestoreDownload("id", 1, "", "u", "audio", "", "paused", "", 0, 0, 0, zero, zero, nil)},
			{"terminal without finish", RestoreDownload("id", 1, "", "u", "audio", "", StatusFailed, "", 0, 0, 0, zero, zero, nil)},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.d.Validate(); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})

	t.Run("Status", func(t *testing.T) {
		if StatusRunning.Terminal() {
			t.Error("running is not terminal")
		}
		if !StatusCancelled.Terminal() || !StatusInterrupted.Terminal() {
			t.Error("expected terminal status")
		}
	})
}
