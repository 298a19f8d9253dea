// Package repositories implements SQLite persistence for the download history.
//
// Key Implementations:
//   - [DownloadRepository] : one row per download request with its status and item counts
//
// The schema is created by the embedded migrations in the shared package. Timestamps are stored as
// TIMESTAMP columns and read back through go-sqlite3's time parsing.
package repositories
