package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind selects the audio or video subtree.
type Kind string

const (
	Audio Kind = "audio"
	Video Kind = "video"
)

// ParseKind converts "audio" or "video" into a [Kind].
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Audio:
		return Audio, nil
	case Video:
		return Video, nil
	default:
		return "", fmt.Errorf("unknown download kind %q", s)
	}
}

const unsafeChars = `\/*?:"<>|`

// Sanitize removes characters that are not allowed in file names on common filesystems.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) {
			return -1
		}
		return r
	}, name)
}

// Resolver derives output directories from the configured base and subdirectory names.
type Resolver struct {
	Base     string
	AudioDir string
	VideoDir string
}

// Root returns <base>/<subdir> for kind.
func (r Resolver) Root(kind Kind) string {
	sub := r.VideoDir
	if kind == Audio {
		sub = r.AudioDir
	}
	return filepath.Join(r.Base, sub)
}

// Path returns the directory for user and an optional playlist without creating it.
func (r Resolver) Path(kind Kind, user, playlist string) string {
	parts := []string{r.Root(kind), fallback(Sanitize(user), "unknown")}
	if playlist != "" {
		parts = append(parts, fallback(Sanitize(playlist), "playlist"))
	}
	return filepath.Join(parts...)
}

// Dir resolves the directory like [Resolver.Path] and makes sure it exists.
func (r Resolver) Dir(kind Kind, user, playlist string) (string, error) {
	dir := r.Path(kind, user, playlist)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// Folder returns a directory relative to the audio root, as stored in the watchlist.
func (r Resolver) Folder(folder string) (string, error) {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(folder), "/") {
		if p = Sanitize(p); p != "" && p != "." && p != ".." {
			parts = append(parts, p)
		}
	}
	dir := filepath.Join(append([]string{r.Root(Audio)}, parts...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// OutputTemplate is the extraction tool's output template for files written to dir.
func OutputTemplate(dir string) string {
	return filepath.Join(dir, "%(title)s.%(ext)s")
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
