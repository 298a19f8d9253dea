package library

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Archive is the durable set of downloaded items.
type Archive struct {
	path    string
	mu      sync.Mutex
	entries map[string]struct{}
}

// ArchiveKey builds the "<extractor> <id>" line for an item.
func ArchiveKey(extractor, id string) string {
	return strings.ToLower(extractor) + " " + id
}

// OpenArchive loads the archive at path. A missing file is an empty archive.
func OpenArchive(path string) (*Archive, error) {
	a := &Archive{path: path, entries: make(map[string]struct{})}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			a.entries[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return a, nil
}

// Path returns the archive file location.
func (a *Archive) Path() string {
	return a.path
}

// Contains reports whether key has been recorded.
func (a *Archive) Contains(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.entries[key]
	return ok
}

// Add appends key to the archive file. Keys already present are ignored.
func (a *Archive) Add(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty archive key")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[key]; ok {
		return nil
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	if _, err := f.WriteString(key + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	a.entries[key] = struct{}{}
	return nil
}

// Len returns the number of recorded items.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
