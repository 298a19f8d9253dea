// Package library manages what lives on disk under the download root.
//
// # Layout
//
// [Resolver] maps a request to <base>/<audio|video>/<user>/[<playlist>/] and
// creates the directory. User and playlist names pass through [Sanitize] first.
//
// # Archive
//
// [Archive] is the append-only record of finished items, one "<extractor> <id>"
// line per item. The format matches yt-dlp's --download-archive file so an
// existing archive can be reused.
//
// # Watchlist
//
// [Watchlist] persists the Spotify playlists the checker revisits, keyed by
// playlist id, as a JSON object rewritten on every change.
package library
