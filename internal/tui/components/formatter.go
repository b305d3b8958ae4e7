package components

import (
	"fmt"
	"strings"
	"unicode"

	determ "github.com/allbin/go-determ"
	"github.com/allbin/go-determ/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

const timeLayout = "15:04:05.000"

// LineFormatter renders scrollback lines as text, optionally with a hex dump
type LineFormatter struct {
	showHex bool
}

func NewLineFormatter() *LineFormatter {
	return &LineFormatter{}
}

func (f *LineFormatter) ToggleHex() {
	f.showHex = !f.showHex
}

func (f *LineFormatter) ShowHex() bool {
	return f.showHex
}

func (f *LineFormatter) Format(line determ.Line) string {
	var indicator string
	if line.Outbound {
		indicator = lipgloss.NewStyle().
			Foreground(colors.Outbound).
			Bold(true).
			Render("↗ TX")
	} else {
		indicator = lipgloss.NewStyle().
			Foreground(colors.Inbound).
			Bold(true).
			Render("↙ RX")
	}

	timestamp := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", line.Time.Format(timeLayout)))

	body := Printable(line.Text)
	if f.showHex {
		body = fmt.Sprintf("%s  %s", hexDump(line.Text), body)
	}
	return fmt.Sprintf("%s %s: %s", timestamp, indicator, body)
}

func (f *LineFormatter) FormatLines(lines []determ.Line) []string {
	formatted := make([]string, len(lines))
	for i, line := range lines {
		formatted[i] = f.Format(line)
	}
	return formatted
}

// Printable replaces control characters so device output cannot drive the terminal
func Printable(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return '.'
	}, text)
}

func hexDump(text string) string {
	return fmt.Sprintf("% X", []byte(text))
}
