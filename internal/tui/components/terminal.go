package components

import (
	"strings"

	determ "github.com/allbin/go-determ"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Terminal shows the scrollback of the active port. Text mode renders into a
// viewport, hex mode into a LineTable.
type Terminal struct {
	viewport  viewport.Model
	table     *LineTable
	formatter *LineFormatter
	lines     []determ.Line
	follow    bool
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		table:     NewLineTable(width, height),
		formatter: NewLineFormatter(),
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.table.SetSize(width, height)
	t.refresh()
}

// SetLines replaces the displayed lines. The view stays at the bottom
// unless the user has scrolled away from it.
func (t *Terminal) SetLines(lines []determ.Line) {
	t.lines = lines
	t.refresh()
}

func (t *Terminal) refresh() {
	if t.formatter.ShowHex() {
		t.table.SetLines(t.lines, t.follow)
		return
	}
	t.viewport.SetContent(strings.Join(t.formatter.FormatLines(t.lines), "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) ScrollUp() {
	t.follow = false
	if t.formatter.ShowHex() {
		t.table.MoveUp(1)
		return
	}
	t.viewport.LineUp(1)
}

func (t *Terminal) ScrollDown() {
	if t.formatter.ShowHex() {
		t.table.MoveDown(1)
		t.follow = t.table.AtBottom()
		return
	}
	t.viewport.LineDown(1)
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) PageUp() {
	t.follow = false
	if t.formatter.ShowHex() {
		t.table.MoveUp(t.viewport.Height)
		return
	}
	t.viewport.ViewUp()
}

func (t *Terminal) PageDown() {
	if t.formatter.ShowHex() {
		t.table.MoveDown(t.viewport.Height)
		t.follow = t.table.AtBottom()
		return
	}
	t.viewport.ViewDown()
	t.follow = t.viewport.AtBottom()
}

// Follow jumps to the newest line and keeps following new output
func (t *Terminal) Follow() {
	t.follow = true
	t.refresh()
}

func (t *Terminal) Following() bool {
	return t.follow
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.refresh()
}

func (t *Terminal) ShowHex() bool {
	return t.formatter.ShowHex()
}

func (t *Terminal) Update(msg tea.Msg) (*Terminal, tea.Cmd) {
	// Key messages are handled by the app so the viewport cannot steal bindings
	switch msg.(type) {
	case tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t, cmd
	default:
		return t, nil
	}
}

func (t *Terminal) View() string {
	if t.formatter.ShowHex() {
		return t.table.View()
	}
	return t.viewport.View()
}
