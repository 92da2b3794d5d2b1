package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Palette used by the text renderer.
var (
	ColorPrimary = lipgloss.Color("#5FAFD7")
	ColorSuccess = lipgloss.Color("#5FD787")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#808080")
)

// Styles holds the lipgloss styles for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Path    lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewStyles builds styles bound to w, so colors are dropped when w is not a
// terminal.
func NewStyles(w io.Writer) *Styles {
	lr := lipgloss.NewRenderer(w)
	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(ColorPrimary),
		Header2: lr.NewStyle().Bold(true),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(ColorMuted),
		Success: lr.NewStyle().Foreground(ColorSuccess),
		Warning: lr.NewStyle().Foreground(ColorWarning),
		Error:   lr.NewStyle().Foreground(ColorError),
		Path:    lr.NewStyle().Foreground(ColorPrimary),

		StatusSuccess: lr.NewStyle().SetString("✓").Foreground(ColorSuccess),
		StatusWarning: lr.NewStyle().SetString("!").Foreground(ColorWarning),
		StatusFailed:  lr.NewStyle().SetString("✗").Foreground(ColorError),
	}
}
