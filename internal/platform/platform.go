// package platform classifies download links by the site they point at
package platform

import "regexp"

// Platform identifies the flow a submitted link is routed to.
type Platform string

const (
	Unknown         Platform = "unknown"
	TikTok          Platform = "tiktok"
	Instagram       Platform = "instagram"
	SpotifyPlaylist Platform = "spotify_playlist"
	YouTubePlaylist Platform = "youtube_playlist"
	YouTube         Platform = "youtube"
	SpotifyTrack    Platform = "spotify_track"
)

type rule struct {
	platform Platform
	pattern  *regexp.Regexp
}

// rules are checked in order; the first match wins. TikTok and Instagram come
// before YouTube so share links embedding a youtube.com string stay with their
// origin site, and playlists come before their single-item counterparts.
var rules = []rule{
	{TikTok, regexp.MustCompile(`(?i)tiktok\.com`)},
	{Instagram, regexp.MustCompile(`(?i)instagram\.com`)},
	{SpotifyPlaylist, regexp.MustCompile(`(?i)open\.spotify\.com/playlist|spotify:playlist|spotify\.com/playlist`)},
	// any list= query parameter on a YouTube host, wherever it sits in the query
	{YouTubePlaylist, regexp.MustCompile(`(?i)(youtube\.com|youtu\.be)/[^?#]*\?([^#]*&)?list=`)},
	{YouTube, regexp.MustCompile(`(?i)youtube\.com|youtu\.be`)},
	{SpotifyTrack, regexp.MustCompile(`(?i)open\.spotify\.com/track|spotify:track|spotify\.com/track`)},
}

// Detect returns the platform of url, or [Unknown] when nothing matches.
func Detect(url string) Platform {
	for _, r := range rules {
		if r.pattern.MatchString(url) {
			return r.platform
		}
	}
	return Unknown
}

// IsPlaylist reports whether p is a multi-item source.
func (p Platform) IsPlaylist() bool {
	return p == SpotifyPlaylist || p == YouTubePlaylist
}

// IsSpotify reports whether p requires the music catalog to resolve tracks.
func (p Platform) IsSpotify() bool {
	return p == SpotifyPlaylist || p == SpotifyTrack
}

// String returns a human readable name.
func (p Platform) String() string {
	switch p {
	case TikTok:
		return "TikTok"
	case Instagram:
		return "Instagram"
	case SpotifyPlaylist:
		return "Spotify playlist"
	case YouTubePlaylist:
		return "YouTube playlist"
	case YouTube:
		return "YouTube"
	case SpotifyTrack:
		return "Spotify track"
	default:
		return "unknown"
	}
}
