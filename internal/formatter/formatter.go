// package formatter renders download history and the playlist watchlist as text, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/models"
)

// Format is an output format for history listings.
type Format string

const (
	Text Format = "text"
	CSV  Format = "csv"
	JSON Format = "json"
)

// ParseFormat accepts text, csv or json (case-insensitive). Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Text, nil
	case Text, CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, csv or json)", s)
	}
}

// WriteHistory renders downloads in format to w.
func WriteHistory(w io.Writer, format Format, downloads []*models.Download, styled bool) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case CSV:
		data, err = HistoryToCSV(downloads)
	case JSON:
		data, err = HistoryToJSON(downloads)
	default:
		data, err = HistoryToText(downloads, styled)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// HistoryToCSV converts downloads to CSV with a header row.
func HistoryToCSV(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "User", "Kind", "Status", "Label", "URL", "Downloaded", "Skipped", "Failed", "Started", "Duration", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, d := range downloads {
		record := []string{
			d.ID(),
			userLabel(d),
			d.Kind(),
			string(d.Status()),
			d.Label(),
			d.URL(),
			strconv.Itoa(d.Downloaded()),
			strconv.Itoa(d.Skipped()),
			strconv.Itoa(d.Failed()),
			d.CreatedAt().UTC().Format(time.RFC3339),
			FormatDuration(d.Duration()),
			d.ErrorMessage(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

type downloadJSON struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"user_id"`
	UserName   string     `json:"user_name,omitempty"`
	URL        string     `json:"url"`
	Kind       string     `json:"kind"`
	Label      string     `json:"label"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Downloaded int        `json:"downloaded"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// HistoryToJSON converts downloads to an indented JSON array.
func HistoryToJSON(downloads []*models.Download) ([]byte, error) {
	out := make([]downloadJSON, 0, len(downloads))
	for _, d := range downloads {
		out = append(out, downloadJSON{
			ID:         d.ID(),
			UserID:     d.UserID(),
			UserName:   d.UserName(),
			URL:        d.URL(),
			Kind:       d.Kind(),
			Label:      d.Label(),
			Status:     string(d.Status()),
			Error:      d.ErrorMessage(),
			Downloaded: d.Downloaded(),
			Skipped:    d.Skipped(),
			Failed:     d.Failed(),
			CreatedAt:  d.CreatedAt(),
			FinishedAt: d.FinishedAt(),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return append(data, '\n'), nil
}

// HistoryToText renders one line per download. styled adds terminal colors.
func HistoryToText(downloads []*models.Download, styled bool) ([]byte, error) {
	var buf bytes.Buffer
	if len(downloads) == 0 {
		buf.WriteString(palette.paint(styled, palette.help, "No downloads recorded.") + "\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(palette.paint(styled, palette.title, fmt.Sprintf("Downloads: %d", len(downloads))) + "\n")
	for i, d := range downloads {
		status := palette.paint(styled, palette.status(d.Status()), fmt.Sprintf("%-11s", d.Status()))
		fmt.Fprintf(&buf, "%d. %s %s [%s] by %s at %s",
			i+1, status, d.Label(), d.Kind(), userLabel(d), d.CreatedAt().Local().Format("2006-01-02 15:04"))
		if d.Downloaded()+d.Skipped()+d.Failed() > 1 {
			fmt.Fprintf(&buf, " (%d downloaded, %d skipped, %d failed)", d.Downloaded(), d.Skipped(), d.Failed())
		}
		if d.FinishedAt() != nil {
			fmt.Fprintf(&buf, " in %s", FormatDuration(d.Duration()))
		}
		buf.WriteString("\n")
		if msg := d.ErrorMessage(); msg != "" {
			buf.WriteString("   " + palette.paint(styled, palette.err, msg) + "\n")
		}
	}
	return buf.Bytes(), nil
}

// HistoryMessage renders downloads as a chat message.
func HistoryMessage(downloads []*models.Download) string {
	if len(downloads) == 0 {
		return "📭 No downloads yet."
	}

	var b strings.Builder
	b.WriteString("📜 Recent downloads:\n")
	for i, d := range downloads {
		fmt.Fprintf(&b, "%d. %s `%s` (%s", i+1, statusIcon(d.Status()), d.Label(), d.Kind())
		if d.FinishedAt() != nil {
			fmt.Fprintf(&b, ", %s", FormatDuration(d.Duration()))
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// WatchlistToText renders watched playlists one per line.
func WatchlistToText(entries []library.WatchEntry) []byte {
	var buf bytes.Buffer
	if len(entries) == 0 {
		buf.WriteString("No playlists are watched.\n")
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "Watched playlists: %d\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s -> %s (%s)\n", e.ID, e.Folder, e.URL)
	}
	return buf.Bytes()
}

// FormatDuration rounds d to seconds. Zero renders as "-".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func statusIcon(s models.DownloadStatus) string {
	switch s {
	case models.StatusCompleted:
		return "✅"
	case models.StatusFailed:
		return "❌"
	case models.StatusCancelled:
		return "🛑"
	case models.StatusInterrupted:
		return "⚠️"
	default:
		return "⏳"
	}
}

func userLabel(d *models.Download) string {
	if d.UserName() != "" {
		return d.UserName()
	}
	return strconv.FormatInt(d.UserID(), 10)
}
