package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/dlbot/internal/models"
)

var palette = newPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// styleSheet holds the named [lipgloss.Style]s used for terminal output.
type styleSheet struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func newPalette(t, s, e, w, h string) *styleSheet {
	return &styleSheet{
		title: newBold(t),
		ok:    newBold(s),
		err:   newStyle(e),
		warn:  newStyle(w),
		help:  newEm(h),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}

func newEm(fg string) lipgloss.Style {
	return newStyle(fg).Italic(true)
}

func (p *styleSheet) status(s models.DownloadStatus) lipgloss.Style {
	switch s {
	case models.StatusCompleted:
		return p.ok
	case models.StatusFailed:
		return p.err
	case models.StatusCancelled, models.StatusInterrupted:
		return p.warn
	default:
		return p.help
	}
}

// paint renders text with style, or returns it unchanged when styled is false.
func (p *styleSheet) paint(styled bool, style lipgloss.Style, text string) string {
	if !styled {
		return text
	}
	return style.Render(text)
}
