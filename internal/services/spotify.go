// Spotify API implementation of [MusicCatalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/dlbot/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	playlistPage    = 100
)

var (
	trackIDPattern    = regexp.MustCompile(`track[/:]([A-Za-z0-9]+)`)
	playlistIDPattern = regexp.MustCompile(`playlist[/:]([A-Za-z0-9]+)`)
)

// ExtractTrackID returns the id from an open.spotify.com/track/... link or a spotify:track:... URI.
func ExtractTrackID(trackURL string) (string, error) {
	if m := trackIDPattern.FindStringSubmatch(trackURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no track id in %q", shared.ErrInvalidInput, trackURL)
}

// ExtractPlaylistID returns the id from a playlist link or URI, ignoring query and fragment.
func ExtractPlaylistID(playlistURL string) (string, error) {
	clean, _, _ := strings.Cut(playlistURL, "?")
	clean, _, _ = strings.Cut(clean, "#")
	if m := playlistIDPattern.FindStringSubmatch(clean); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no playlist id in %q", shared.ErrInvalidInput, playlistURL)
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
}

func (st SpotifyTrack) toTrack() Track {
	track := Track{
		ID:       st.ID,
		Title:    st.Name,
		Album:    st.Album.Name,
		Duration: st.DurationMS / 1000,
		ISRC:     st.ExternalIDs.ISRC,
	}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist header.
type SpotifyPlaylist struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Owner  owner      `json:"owner"`
	Tracks trackTotal `json:"tracks"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
// Track is nil for removed or local-only items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks is one page of /playlists/{id}/tracks.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyOpts configures a [SpotifyService]. BaseURL and TokenURL default to the public endpoints.
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	RateLimit    float64
	BaseURL      string
	TokenURL     string
	HTTPClient   *http.Client
}

// SpotifyService implements [MusicCatalog] with app-only (client credentials) access.
type SpotifyService struct {
	config     *clientcredentials.Config
	baseURL    string
	httpClient *http.Client
	baseClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given client credentials.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)

	return &SpotifyService{
		config:     config,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: config.Client(ctx),
		baseClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate requests an app token to verify the credentials.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	if _, err := s.config.Token(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return nil
}

// doRequest performs an authenticated GET against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, notFound error, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return notFound
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", shared.ErrForbidden, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), shared.ErrTrackNotFound, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Playlist retrieves a playlist header by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=%s", url.PathEscape(playlistID), url.QueryEscape("id,name,owner(id,display_name),tracks(total)"))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, endpoint, shared.ErrPlaylistNotFound, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistTracksPage retrieves one page of playlist items.
func (s *SpotifyService) PlaylistTracksPage(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	if limit <= 0 || limit > playlistPage {
		limit = playlistPage
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)

	var page SpotifyPaginatedPlaylistTracks
	if err := s.doRequest(ctx, endpoint, shared.ErrPlaylistNotFound, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TrackInfo resolves a track link.
func (s *SpotifyService) TrackInfo(ctx context.Context, trackURL string) (*Track, error) {
	id, err := ExtractTrackID(trackURL)
	if err != nil {
		return nil, err
	}
	st, err := s.Track(ctx, id)
	if err != nil {
		return nil, err
	}
	track := st.toTrack()
	return &track, nil
}

// PlaylistInfo resolves a playlist link.
func (s *SpotifyService) PlaylistInfo(ctx context.Context, playlistURL string) (*Playlist, error) {
	id, err := ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}
	sp, err := s.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Playlist{
		ID:         sp.ID,
		Name:       sp.Name,
		Owner:      sp.Owner.DisplayName,
		TrackCount: sp.Tracks.Total,
	}, nil
}

// PlaylistTracks walks every page of a playlist.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistURL string) ([]Track, error) {
	id, err := ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}

	var tracks []Track
	offset := 0
	for {
		page, err := s.PlaylistTracksPage(ctx, id, playlistPage, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.Name == "" {
				continue
			}
			tracks = append(tracks, item.Track.toTrack())
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}
	return tracks, nil
}
