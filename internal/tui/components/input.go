package components

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/allbin/go-determ/internal/tui/colors"
	"github.com/allbin/go-determ/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	if s == SendingModeHex {
		return "HEX"
	}
	return "ASCII"
}

func (s SendingMode) placeholder() string {
	if s == SendingModeHex {
		return "hex bytes, e.g. 0d0a or 41 54 0d"
	}
	return "text to send, enter appends a newline"
}

func (s SendingMode) prompt() string {
	style := lipgloss.NewStyle().Bold(true)
	if s == SendingModeHex {
		return style.Foreground(colors.Yellow).Render("#")
	}
	return style.Foreground(colors.Green).Render(">")
}

// Input is the single-line writer shown in writing mode
type Input struct {
	field   textinput.Model
	mode    SendingMode
	history history
	width   int
}

func NewInput() *Input {
	field := textinput.New()
	field.Prompt = ""
	field.CharLimit = 1024
	field.Placeholder = SendingModeASCII.placeholder()

	return &Input{field: field, history: history{cursor: -1}}
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// frame and prompt take six cells
	i.field.Width = max(width-6, 10)
}

func (i *Input) Focus() tea.Cmd { return i.field.Focus() }
func (i *Input) Blur() { i.field.Blur() }
func (i *Input) Value() string { return i.field.Value() }
func (i *Input) SetValue(v string) { i.field.SetValue(v) }
func (i *Input) Reset() { i.field.Reset() }
func (i *Input) SendingMode() SendingMode { return i.mode }

func (i *Input) ToggleSendingMode() {
	if i.mode == SendingModeASCII {
		i.mode = SendingModeHex
	} else {
		i.mode = SendingModeASCII
	}
	i.field.Placeholder = i.mode.placeholder()
}

// Payload is what goes on the wire for the current text. Hex mode ignores
// whitespace between digits.
func (i *Input) Payload() (string, error) {
	text := i.field.Value()
	if i.mode == SendingModeASCII {
		return text, nil
	}

	raw, err := hex.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return "", fmt.Errorf("not hex: %w", err)
	}
	return string(raw), nil
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.field, cmd = i.field.Update(msg)
	return i, cmd
}

func (i *Input) View(focused bool) string {
	box := styles.InputStyle.Width(max(i.width-4, 10))
	if focused {
		box = box.BorderForeground(colors.Accent)
	}
	return box.Render(i.mode.prompt() + " " + i.field.View())
}

// AddToHistory remembers a sent line and ends any history browsing
func (i *Input) AddToHistory(value string) {
	i.history.add(strings.TrimSpace(value))
}

func (i *Input) NavigateHistoryUp() {
	if text, ok := i.history.older(i.field.Value()); ok {
		i.field.SetValue(text)
		i.field.CursorEnd()
	}
}

func (i *Input) NavigateHistoryDown() {
	if text, ok := i.history.newer(); ok {
		i.field.SetValue(text)
		i.field.CursorEnd()
	}
}

const maxHistory = 100

// history keeps sent lines oldest first. cursor is -1 while not browsing;
// draft holds the unsent text that browsing replaced.
type history struct {
	entries []string
	cursor  int
	draft   string
}

func (h *history) add(line string) {
	h.cursor, h.draft = -1, ""
	if line == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > maxHistory {
		h.entries = h.entries[len(h.entries)-maxHistory:]
	}
}

func (h *history) older(current string) (string, bool) {
	switch {
	case len(h.entries) == 0:
		return "", false
	case h.cursor == -1:
		h.draft = current
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

func (h *history) newer() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], true
	}
	draft := h.draft
	h.cursor, h.draft = -1, ""
	return draft, true
}
