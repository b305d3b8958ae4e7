package keys

import "github.com/charmbracelet/bubbles/key"

// Common key bindings available in every mode
type CommonKeys struct {
	Quit     key.Binding
	Help     key.Binding
	NextPane key.Binding
	Left     key.Binding
	Right    key.Binding
}

func NewCommonKeys() CommonKeys {
	return CommonKeys{
		Quit: key.NewBinding(
			key.WithKeys("alt+q", "ctrl+c"),
			key.WithHelp("alt+q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "pane left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "pane right"),
		),
	}
}

// Scrollback navigation
type ScrollKeys struct {
	Up     key.Binding
	Down   key.Binding
	PgUp   key.Binding
	PgDown key.Binding
	End    key.Binding
}

func NewScrollKeys() ScrollKeys {
	return ScrollKeys{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "scroll down"),
		),
		PgUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PgDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "follow"),
		),
	}
}
