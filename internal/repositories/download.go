package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dlbot/internal/models"
	"github.com/desertthunder/dlbot/internal/shared"
)

const downloadColumns = `id, user_id, user_name, url, kind, label, status, error,
	downloaded, skipped, failed, created_at, updated_at, finished_at`

// DownloadRepository implements models.Repository[*models.Download] for the download history.
type DownloadRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Download] = (*DownloadRepository)(nil)

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new download with a generated ID
func (r *DownloadRepository) Create(download *models.Download) error {
	if download.ID() == "" {
		download.SetID(shared.GenerateID())
	}

	if err := download.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO downloads (` + downloadColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		download.ID(),
		download.UserID(),
		download.UserName(),
		download.URL(),
		download.Kind(),
		download.Label(),
		string(download.Status()),
		download.ErrorMessage(),
		download.Downloaded(),
		download.Skipped(),
		download.Failed(),
		download.CreatedAt(),
		download.UpdatedAt(),
		download.FinishedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	return nil
}

// Get retrieves a download by ID
func (r *DownloadRepository) Get(id string) (*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ?`
	download, err := scanDownload(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: download %s", ErrNotFound, id)
	}
	return download, err
}

// Update stores the label, status, counts and timestamps of a download
func (r *DownloadRepository) Update(download *models.Download) error {
	if err := download.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	download.SetUpdatedAt(now)

	query := `
		UPDATE downloads
		SET label = ?, status = ?, error = ?, downloaded = ?, skipped = ?, failed = ?, updated_at = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		download.Label(),
		string(download.Status()),
		download.ErrorMessage(),
		download.Downloaded(),
		download.Skipped(),
		download.Failed(),
		now,
		download.FinishedAt(),
		download.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	return checkAffected(result, "download", download.ID())
}

// Delete removes a download by ID
func (r *DownloadRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}
	return checkAffected(result, "download", id)
}

// List retrieves downloads newest first.
//
// Supported criteria: "user_id" (int64), "status" (string or [models.DownloadStatus]), "limit" (int).
func (r *DownloadRepository) List(criteria map[string]any) ([]*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE 1 = 1`
	args := []any{}

	if userID, ok := criteria["user_id"].(int64); ok && userID != 0 {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.DownloadStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	}

	query += " ORDER BY created_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.Download
	for rows.Next() {
		download, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, download)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating downloads: %w", err)
	}

	return downloads, nil
}

// Recent returns the latest downloads across all users.
func (r *DownloadRepository) Recent(limit int) ([]*models.Download, error) {
	return r.List(map[string]any{"limit": limit})
}

// ByUser returns the latest downloads of one user.
func (r *DownloadRepository) ByUser(userID int64, limit int) ([]*models.Download, error) {
	return r.List(map[string]any{"user_id": userID, "limit": limit})
}

// MarkInterrupted closes rows left running by a previous process and returns how many were changed.
func (r *DownloadRepository) MarkInterrupted() (int64, error) {
	now := time.Now()
	result, err := r.db.Exec(
		`UPDATE downloads SET status = ?, updated_at = ?, finished_at = ? WHERE status = ?`,
		string(models.StatusInterrupted), now, now, string(models.StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted downloads: %w", err)
	}
	return result.RowsAffected()
}

func scanDownload(row scanner) (*models.Download, error) {
	var (
		id, userName, url, kind, label, status, errorMessage string
		userID                                               int64
		downloaded, skipped, failed                          int
		createdAt, updatedAt                                 time.Time
		finishedAt                                           sql.NullTime
	)

	err := row.Scan(&id, &userID, &userName, &url, &kind, &label, &status, &errorMessage,
		&downloaded, &skipped, &failed, &createdAt, &updatedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	var finished *time.Time
	if finishedAt.Valid {
		finished = &finishedAt.Time
	}

	return models.RestoreDownload(id, userID, userName, url, kind, label,
		models.DownloadStatus(status), errorMessage, downloaded, skipped, failed,
		createdAt, updatedAt, finished), nil
}
