package styles

import (
	"github.com/allbin/go-determ/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// Frame
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(colors.Accent).
			Background(colors.Surface0).
			Bold(true).
			Padding(0, 1)

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface1)

	// FocusedPaneStyle only swaps the border color so panes keep their size
	FocusedPaneStyle = PaneStyle.BorderForeground(colors.Accent)

	PaneTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colors.Subtext1)

	InputStyle = PaneStyle.
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	InfoStyle = lipgloss.NewStyle().Italic(true).Foreground(colors.Subtext0)
)

// Port list rows
var (
	PortHighlightStyle = lipgloss.NewStyle().Background(colors.Lavender).Foreground(colors.Base)
	PortActiveStyle    = lipgloss.NewStyle().Bold(true).Foreground(colors.Green)
	PortFailedStyle    = lipgloss.NewStyle().Foreground(colors.Red)
)

// Connection indicator and status notes
var (
	IndicatorOpen    = lipgloss.NewStyle().Foreground(colors.Green)
	IndicatorOpening = lipgloss.NewStyle().Foreground(colors.Yellow)
	IndicatorFailed  = lipgloss.NewStyle().Foreground(colors.Red)
	IndicatorIdle    = lipgloss.NewStyle().Foreground(colors.Overlay0)

	NoteStyle  = lipgloss.NewStyle().Foreground(colors.Subtext0).Padding(0, 1)
	ErrorStyle = NoteStyle.Foreground(colors.Red)
)
