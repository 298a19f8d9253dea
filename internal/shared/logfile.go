package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	latestLogName   = "latest.log"
	archiveLogStamp = "15-04-05-02-01-2006"
)

// OpenLogFile prepares dir/latest.log for a new run.
//
// A latest.log left by the previous run is renamed after its modification time
// (HH-MM-SS-DD-MM-YYYY.log) before a fresh file is created.
func OpenLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	latest := filepath.Join(dir, latestLogName)
	if info, err := os.Stat(latest); err == nil {
		archived := filepath.Join(dir, info.ModTime().Format(archiveLogStamp)+".log")
		if err := os.Rename(latest, archived); err != nil {
			return nil, fmt.Errorf("failed to archive previous log: %w", err)
		}
	}

	f, err := os.OpenFile(latest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// LogWriter returns a writer sending log output to stderr and, when f is non-nil, to f.
func LogWriter(f *os.File) io.Writer {
	if f == nil {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, f)
}

// EnsureDirs creates every directory in paths.
func EnsureDirs(paths ...string) error {
	for _, p := range paths {
		if err := os.MkdirAll(p, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Touch creates path if it does not exist, leaving existing content untouched.
func Touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to touch %s: %w", path, err)
	}
	return f.Close()
}
