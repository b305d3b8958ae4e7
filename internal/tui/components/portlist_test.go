package components

import (
	"testing"

	determ "github.com/allbin/go-determ"
	"github.com/stretchr/testify/require"
)

func testPorts() []determ.PortInfo {
	return []determ.PortInfo{
		{Name: "ttyACM0", Path: "/dev/ttyACM0", Kind: determ.KindUSB},
		{Name: "ttyS0", Path: "/dev/ttyS0", Kind: determ.KindStandard},
		{Name: "ttyUSB0", Path: "/dev/ttyUSB0", Kind: determ.KindUSB},
	}
}

func TestPortListSelectionWraps(t *testing.T) {
	pl := NewPortList(40, 10)
	require.Equal(t, "", pl.Selected())

	pl.SetPorts(testPorts())
	require.Equal(t, "/dev/ttyACM0", pl.Selected())

	pl.MoveUp()
	require.Equal(t, "/dev/ttyUSB0", pl.Selected())
	pl.MoveDown()
	require.Equal(t, "/dev/ttyACM0", pl.Selected())
	pl.MoveDown()
	require.Equal(t, "/dev/ttyS0", pl.Selected())
}

func TestPortListRescanKeepsSelection(t *testing.T) {
	pl := NewPortList(40, 10)
	pl.SetPorts(testPorts())
	pl.MoveDown()
	pl.MoveDown()
	require.Equal(t, "/dev/ttyUSB0", pl.Selected())

	pl.SetPorts(testPorts()[1:])
	require.Equal(t, "/dev/ttyUSB0", pl.Selected())

	pl.SetPorts(testPorts()[:1])
	require.Equal(t, "/dev/ttyACM0", pl.Selected())
}

func TestPortListView(t *testing.T) {
	pl := NewPortList(40, 10)
	require.Contains(t, pl.View(), "no serial ports")

	pl.SetPorts(testPorts())
	pl.SetActive("/dev/ttyS0")
	pl.SetFailed("/dev/ttyUSB0")
	view := pl.View()
	require.Contains(t, view, "ttyS0")
	require.Contains(t, view, "●")
	require.Contains(t, view, "✗")
}
