// package services defines the music catalog used by Spotify flows
package services

import "context"

// MusicCatalog looks up track metadata for links the extractor cannot fetch directly.
type MusicCatalog interface {
	// Authenticate fetches an access token, failing early on bad credentials.
	Authenticate(ctx context.Context) error

	// TrackInfo resolves a track link or URI.
	TrackInfo(ctx context.Context, trackURL string) (*Track, error)

	// PlaylistInfo resolves a playlist link or URI without its tracks.
	PlaylistInfo(ctx context.Context, playlistURL string) (*Playlist, error)

	// PlaylistTracks returns every track of a playlist in order.
	PlaylistTracks(ctx context.Context, playlistURL string) ([]Track, error)

	// Name returns the name of the catalog (e.g., "Spotify")
	Name() string
}

// Playlist represents a playlist header.
type Playlist struct {
	ID         string
	Name       string
	Owner      string
	TrackCount int
}

// Track represents a music track from the catalog
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration int // Duration in seconds
	ISRC     string
}

// SearchQuery returns the "<title> <artist>" text used to find the track on YouTube.
func (t Track) SearchQuery() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " " + t.Artist
}
