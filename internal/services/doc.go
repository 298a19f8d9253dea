// Package services defines the [MusicCatalog] interface used to turn Spotify links into search queries
// and implements it against the Spotify Web API.
//
// # Music Catalog
//
// The bot never downloads from Spotify. A track or playlist link is resolved to titles and artists
// through the catalog, and each track becomes a "ytsearch1:<title> <artist>" query for the extractor.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates with the OAuth2 client credentials grant, so no user login or redirect
// server is involved. The [oauth2] transport caches the app token and fetches a new one when it expires.
//
// Requests pass through a [rate.Limiter] sized from spotify.rate_limit.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client id or secret not configured
//   - [shared.ErrAuthFailed] : token request rejected
//   - [shared.ErrTrackNotFound], [shared.ErrPlaylistNotFound] : 404 from the API
//   - [shared.ErrServiceUnavailable] : 429 or 5xx
//   - [shared.ErrAPIRequest] : any other failure
package services
