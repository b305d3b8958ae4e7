package components

import (
	"fmt"

	determ "github.com/allbin/go-determ"
	"github.com/allbin/go-determ/internal/tui/colors"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// LineTable lays scrollback lines out as time, direction, hex and text columns
type LineTable struct {
	table table.Model
	rows  int
}

func NewLineTable(width, height int) *LineTable {
	t := table.New(
		table.WithColumns(lineColumns(width)),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Text).
		Background(colors.Surface1).
		Bold(false)
	t.SetStyles(s)

	return &LineTable{table: t}
}

func lineColumns(width int) []table.Column {
	timeWidth := 12
	dirWidth := 2
	bytesWidth := 5

	remaining := width - timeWidth - dirWidth - bytesWidth - 8
	if remaining < 20 {
		remaining = 20
	}
	hexWidth := remaining * 6 / 10

	return []table.Column{
		{Title: "Time", Width: timeWidth},
		{Title: "↕", Width: dirWidth},
		{Title: "Hex", Width: hexWidth},
		{Title: "Text", Width: remaining - hexWidth},
		{Title: "Bytes", Width: bytesWidth},
	}
}

func (lt *LineTable) SetSize(width, height int) {
	lt.table.SetColumns(lineColumns(width))
	lt.table.SetHeight(height)
	lt.table.SetWidth(width)
	lt.table.UpdateViewport()
}

func (lt *LineTable) SetLines(lines []determ.Line, follow bool) {
	rows := make([]table.Row, len(lines))
	for i, line := range lines {
		rows[i] = lineRow(line)
	}
	lt.rows = len(rows)
	lt.table.SetRows(rows)
	if follow {
		lt.table.GotoBottom()
	}
	lt.table.UpdateViewport()
}

func lineRow(line determ.Line) table.Row {
	direction := "↙"
	if line.Outbound {
		direction = "↗"
	}
	return table.Row{
		line.Time.Format(timeLayout),
		direction,
		hexDump(line.Text),
		Printable(line.Text),
		fmt.Sprintf("%d", len(line.Text)),
	}
}

func (lt *LineTable) MoveUp(n int) {
	lt.table.MoveUp(n)
}

func (lt *LineTable) MoveDown(n int) {
	lt.table.MoveDown(n)
}

func (lt *LineTable) AtBottom() bool {
	return lt.rows == 0 || lt.table.Cursor() >= lt.rows-1
}

func (lt *LineTable) View() string {
	return lt.table.View()
}
