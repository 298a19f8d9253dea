// Package tasks runs download jobs for chat users and reports their progress.
//
// # Lifecycle
//
// [Manager.Start] registers a [Task] in the [Registry] under the requesting user, records it in the
// download history and runs it on its own goroutine. A user has at most one task at a time: a second
// submission fails with [ErrTaskActive] until the first one ends or is cancelled with [Registry.Cancel].
// The registry entry is removed on every exit path.
//
// # Worker
//
// [Worker.Download] resolves each locator of a [Job] through the [media.Extractor], skips entries already
// in the [library.Archive], fetches the rest and appends each success to the archive. Failures of single
// items are logged and the batch continues. Fetches share a pool of max_workers slots.
//
// # Progress Relay
//
// The extractor reports progress on the fetching goroutine. A [Tracker] throttles those reports to one
// every two seconds and renders the status text. The text is posted to the task goroutine, which owns the
// [Status] message, and the callback waits for the edit to be acknowledged (bounded by a timeout), so edits
// of one task are applied in order. Delivery failures are logged and never stop the download.
//
// Every job ends with exactly one terminal edit: success, cancelled (skipped in silent mode) or error.
//
// # Playlist Checker
//
// [Checker] periodically re-reads the watchlist, expands each Spotify playlist into "ytsearch1:" queries
// and runs them as one job per playlist. Archived tracks are skipped, so only new tracks are fetched.
package tasks
