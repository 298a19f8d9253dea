package platform

import "testing"

func TestDetect(t *testing.T) {
	tc := []struct {
		name string
		url  string
		want Platform
	}{
		{"youtube video", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", YouTube},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", YouTube},
		{"youtube playlist page", "https://www.youtube.com/playlist?list=PL123", YouTubePlaylist},
		{"youtube video inside playlist", "https://www.youtube.com/watch?v=abc&list=PL123", YouTubePlaylist},
		{"youtube list before video", "https://www.youtube.com/watch?list=PL123&v=abc", YouTubePlaylist},
		{"youtube list after other params", "https://www.youtube.com/watch?feature=share&v=abc&list=PL123", YouTubePlaylist},
		{"youtube short link in playlist", "https://youtu.be/abc?si=x&list=PL123", YouTubePlaylist},
		{"youtube param ending in list", "https://www.youtube.com/watch?v=abc&playlist=PL123", YouTube},
		{"tiktok wins over youtube substring", "https://www.tiktok.com/@user/video/1?ref=youtube.com", TikTok},
		{"instagram", "https://www.instagram.com/reel/xyz/", Instagram},
		{"spotify playlist", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", SpotifyPlaylist},
		{"spotify playlist uri", "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", SpotifyPlaylist},
		{"spotify track", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", SpotifyTrack},
		{"case insensitive", "HTTPS://WWW.YOUTUBE.COM/WATCH?V=abc", YouTube},
		{"unsupported", "https://example.com/video.mp4", Unknown},
		{"empty", "", Unknown},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.url); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestPlatformPredicates(t *testing.T) {
	if !YouTubePlaylist.IsPlaylist() || !SpotifyPlaylist.IsPlaylist() {
		t.Error("expected playlists to report IsPlaylist")
	}
	if YouTube.IsPlaylist() {
		t.Error("single video is not a playlist")
	}
	if !SpotifyTrack.IsSpotify() || YouTube.IsSpotify() {
		t.Error("unexpected IsSpotify result")
	}
	if Unknown.String() != "unknown" {
		t.Errorf("unexpected name %q", Unknown.String())
	}
}
