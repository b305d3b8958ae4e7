package components

import (
	"fmt"

	determ "github.com/allbin/go-determ"
	"github.com/allbin/go-determ/internal/tui/colors"
	"github.com/allbin/go-determ/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// StatusState is what the connection indicator shows
type StatusState int

const (
	StatusIdle StatusState = iota
	StatusOpening
	StatusOpen
	StatusFailed
)

type StatusBar struct {
	width    int
	active   string
	state    StatusState
	message  string
	err      error
	baudRate int
	dtr      bool
	rts      bool
}

func NewStatusBar(baudRate int) *StatusBar {
	return &StatusBar{
		baudRate: baudRate,
		message:  "select a port",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetOpening(device string) {
	sb.state = StatusOpening
	sb.message = "opening " + device
	sb.err = nil
}

func (sb *StatusBar) SetActive(device string) {
	sb.active = device
	sb.state = StatusOpen
	sb.message = ""
	sb.err = nil
}

// SetOpenFailed reports a failed open. A previously active port stays active.
func (sb *StatusBar) SetOpenFailed(err error) {
	sb.err = err
	sb.state = StatusFailed
	if sb.active != "" {
		sb.state = StatusOpen
	}
}

func (sb *StatusBar) SetError(err error) {
	sb.err = err
}

func (sb *StatusBar) SetMessage(message string) {
	sb.message = message
	sb.err = nil
}

// SetSignal records the level reported for a modem line
func (sb *StatusBar) SetSignal(signal determ.Signal, level bool) {
	switch signal {
	case determ.SignalDTR:
		sb.dtr = level
	case determ.SignalRTS:
		sb.rts = level
	}
}

func (sb *StatusBar) Signals() (dtr, rts bool) {
	return sb.dtr, sb.rts
}

func (sb *StatusBar) Err() error {
	return sb.err
}

func (sb *StatusBar) Message() string {
	return sb.message
}

func (sb *StatusBar) View(mode, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeView := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Accent).
		Bold(true).
		Padding(0, 1).
		Render(mode)

	active := sb.active
	if active == "" {
		active = "no port"
	}
	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(active)

	var indicator string
	switch sb.state {
	case StatusOpen:
		indicator = styles.IndicatorOpen.Render("●")
	case StatusOpening:
		indicator = styles.IndicatorOpening.Render("○")
	case StatusFailed:
		indicator = styles.IndicatorFailed.Render("✗")
	default:
		indicator = styles.IndicatorIdle.Render("○")
	}

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	var note string
	if sb.err != nil {
		note = styles.ErrorStyle.Render(sb.err.Error())
	} else if sb.message != "" {
		note = styles.NoteStyle.Render(sb.message)
	}

	signals := lipgloss.NewStyle().
		Foreground(colors.Signal).
		Padding(0, 1).
		Render(fmt.Sprintf("DTR:%s RTS:%s", level(sb.dtr), level(sb.rts)))

	baud := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("⚡ %d baud", sb.baudRate))

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	left := lipgloss.JoinHorizontal(lipgloss.Left, modeView, port, indicator, divider, note)
	right := lipgloss.JoinHorizontal(lipgloss.Left, signals, divider, baud, divider, clock)

	spacerWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}

func level(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
