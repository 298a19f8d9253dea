package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("writes to provided writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		WithLogger(logger, "user", 42).Info("hello")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output to contain message, got %q", buf.String())
		}
		if !strings.Contains(buf.String(), "42") {
			t.Errorf("expected log output to contain key value, got %q", buf.String())
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		tc := []struct {
			in   string
			want log.Level
		}{
			{"debug", log.DebugLevel},
			{"warn", log.WarnLevel},
			{"", log.InfoLevel},
			{"loud", log.InfoLevel},
		}
		for _, tt := range tc {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	})
}

func TestOpenLogFile(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "latest.log")
	if err := os.WriteFile(latest, []byte("previous run\n"), 0644); err != nil {
		t.Fatalf("failed to seed log: %v", err)
	}
	stamp := time.Date(2025, 3, 4, 10, 20, 30, 0, time.Local)
	if err := os.Chtimes(latest, stamp, stamp); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}

	f, err := OpenLogFile(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	archived := filepath.Join(dir, "10-20-30-04-03-2025.log")
	content, err := os.ReadFile(archived)
	if err != nil {
		t.Fatalf("expected archived log: %v", err)
	}
	if string(content) != "previous run\n" {
		t.Errorf("unexpected archived content %q", content)
	}

	info, err := os.Stat(latest)
	if err != nil {
		t.Fatalf("expected fresh latest.log: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty latest.log, got %d bytes", info.Size())
	}
}

func TestShortID(t *testing.T) {
	a, b := ShortID(), ShortID()
	if len(a) != 8 {
		t.Errorf("expected 8 characters, got %q", a)
	}
	if a == b {
		t.Error("expected distinct ids")
	}
}

func TestTouch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.txt")
	if err := os.WriteFile(path, []byte("youtube abc\n"), 0644); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	if err := Touch(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "youtube abc\n" {
		t.Errorf("touch must not truncate, got %q", content)
	}
}
