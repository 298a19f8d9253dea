package models

import (
	"fmt"
	"time"
)

// DownloadStatus is the lifecycle state of a [Download].
type DownloadStatus string

const (
	StatusRunning     DownloadStatus = "running"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusCancelled   DownloadStatus = "cancelled"
	StatusInterrupted DownloadStatus = "interrupted"
)

// Valid reports whether s is a known status.
func (s DownloadStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed, StatusCancelled, StatusInterrupted:
		return true
	}
	return false
}

// Terminal reports whether s ends a download.
func (s DownloadStatus) Terminal() bool {
	return s.Valid() && s != StatusRunning
}

// Download is a recorded download request.
type Download struct {
	id           string
	userID       int64
	userName     string
	url          string
	kind         string
	label        string
	status       DownloadStatus
	errorMessage string
	downloaded   int
	skipped      int
	failed       int
	createdAt    time.Time
	updatedAt    time.Time
	finishedAt   *time.Time
}

// NewDownload creates a running download for userID.
func NewDownload(userID int64, userName, url, kind, label string) *Download {
	now := time.Now()
	return &Download{
		userID:    userID,
		userName:  userName,
		url:       url,
		kind:      kind,
		label:     label,
		status:    StatusRunning,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreDownload rebuilds a Download from stored columns.
func RestoreDownload(
	id string, userID int64, userName, url, kind, label string,
	status DownloadStatus, errorMessage string, downloaded, skipped, failed int,
	createdAt, updatedAt time.Time, finishedAt *time.Time,
) *Download {
	return &Download{
		id:           id,
		userID:       userID,
		userName:     userName,
		url:          url,
		kind:         kind,
		label:        label,
		status:       status,
		errorMessage: errorMessage,
		downloaded:   downloaded,
		skipped:      skipped,
		failed:       failed,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		finishedAt:   finishedAt,
	}
}

func (d *Download) ID() string { return d.id }
func (d *Download) UserID() int64 { return d.userID }
func (d *Download) UserName() string { return d.userName }
func (d *Download) URL() string { return d.url }
func (d *Download) Kind() string { return d.kind }
func (d *Download) Label() string { return d.label }
func (d *Download) Status() DownloadStatus { return d.status }
func (d *Download) ErrorMessage() string { return d.errorMessage }
func (d *Download) Downloaded() int { return d.downloaded }
func (d *Download) Skipped() int { return d.skipped }
func (d *Download) Failed() int { return d.failed }
func (d *Download) CreatedAt() time.Time { return d.createdAt }
func (d *Download) UpdatedAt() time.Time { return d.updatedAt }
func (d *Download) FinishedAt() *time.Time { return d.finishedAt }
func (d *Download) SetID(id string) { d.id = id }
func (d *Download) SetLabel(label string) { d.label = label }
func (d *Download) SetUpdatedAt(t time.Time) { d.updatedAt = t }

// Finish moves the download to a terminal status with its item counts.
func (d *Download) Finish(status DownloadStatus, downloaded, skipped, failed int, errorMessage string) {
	now := time.Now()
	d.status = status
	d.downloaded = downloaded
	d.skipped = skipped
	d.failed = failed
	d.errorMessage = errorMessage
	d.finishedAt = &now
	d.updatedAt = now
}

// Duration is the time between submission and finish, zero while running.
func (d *Download) Duration() time.Duration {
	if d.finishedAt == nil {
		return 0
	}
	return d.finishedAt.Sub(d.createdAt)
}

// Validate checks required fields.
func (d *Download) Validate() error {
	if d.url == "" {
		return fmt.Errorf("download url is required")
	}
	if d.kind == "" {
		return fmt.Errorf("download kind is required")
	}
	if !d.status.Valid() {
		return fmt.Errorf("invalid download status %q", d.status)
	}
	if d.status.Terminal() != (d.finishedAt != nil) {
		return fmt.Errorf("finished_at must be set exactly for terminal statuses")
	}
	return nil
}
