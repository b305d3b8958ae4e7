package components

import (
	determ "github.com/allbin/go-determ"
	"github.com/allbin/go-determ/internal/tui/colors"
	"github.com/allbin/go-determ/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyMarker = "marker"
	columnKeyName   = "name"
	columnKeyKind   = "kind"
	columnKeyPath   = "path"
)

// PortList is the selectable list of serial ports. Selection wraps at both ends.
type PortList struct {
	table    table.Model
	ports    []determ.PortInfo
	selected int
	active   string
	failed   map[string]bool
	focused  bool
	width    int
	height   int
}

func NewPortList(width, height int) *PortList {
	pl := &PortList{
		failed: make(map[string]bool),
		width:  width,
		height: height,
	}
	pl.rebuild()
	return pl
}

func (pl *PortList) SetSize(width, height int) {
	pl.width = width
	pl.height = height
	pl.rebuild()
}

// SetPorts replaces the listed ports, keeping the selection on the same path when possible
func (pl *PortList) SetPorts(ports []determ.PortInfo) {
	current := pl.Selected()
	pl.ports = ports
	pl.selected = 0
	for i, p := range ports {
		if p.Path == current {
			pl.selected = i
			break
		}
	}
	pl.rebuild()
}

func (pl *PortList) Ports() []determ.PortInfo {
	return pl.ports
}

func (pl *PortList) MoveUp() {
	if len(pl.ports) == 0 {
		return
	}
	pl.selected = (pl.selected - 1 + len(pl.ports)) % len(pl.ports)
	pl.rebuild()
}

func (pl *PortList) MoveDown() {
	if len(pl.ports) == 0 {
		return
	}
	pl.selected = (pl.selected + 1) % len(pl.ports)
	pl.rebuild()
}

// Selected returns the highlighted port path, or "" when the list is empty
func (pl *PortList) Selected() string {
	if pl.selected < 0 || pl.selected >= len(pl.ports) {
		return ""
	}
	return pl.ports[pl.selected].Path
}

func (pl *PortList) SetActive(path string) {
	pl.active = path
	delete(pl.failed, path)
	pl.rebuild()
}

func (pl *PortList) SetFailed(path string) {
	pl.failed[path] = true
	pl.rebuild()
}

func (pl *PortList) SetFocused(focused bool) {
	pl.focused = focused
	pl.rebuild()
}

func (pl *PortList) rebuild() {
	columns := []table.Column{
		table.NewColumn(columnKeyMarker, "", 2),
		table.NewFlexColumn(columnKeyName, "Port", 2),
		table.NewColumn(columnKeyKind, "Kind", 9),
	}

	rows := make([]table.Row, 0, len(pl.ports))
	for _, p := range pl.ports {
		marker := " "
		row := table.NewRow(table.RowData{
			columnKeyName: p.Name,
			columnKeyKind: string(p.Kind),
			columnKeyPath: p.Path,
		})
		switch {
		case p.Path == pl.active:
			marker = "●"
			row = row.WithStyle(styles.PortActiveStyle)
		case pl.failed[p.Path]:
			marker = "✗"
			row = row.WithStyle(styles.PortFailedStyle)
		}
		row.Data[columnKeyMarker] = marker
		rows = append(rows, row)
	}

	pageSize := pl.height - 4
	if pageSize < 1 {
		pageSize = 1
	}

	pl.table = table.New(columns).
		WithRows(rows).
		WithTargetWidth(pl.width).
		WithPageSize(pageSize).
		WithFooterVisibility(false).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)).
		HighlightStyle(styles.PortHighlightStyle).
		Focused(pl.focused).
		WithHighlightedRow(pl.selected)
}

func (pl *PortList) View() string {
	if len(pl.ports) == 0 {
		return styles.InfoStyle.Render("no serial ports found")
	}
	return pl.table.View()
}
