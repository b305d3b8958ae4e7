package keys

import "github.com/charmbracelet/bubbles/key"

// AppKeys are the bindings of the interactive terminal
type AppKeys struct {
	CommonKeys
	ScrollKeys
	Select      key.Binding
	Send        key.Binding
	Substitute  key.Binding
	ToggleDTR   key.Binding
	ToggleRTS   key.Binding
	ToggleHex   key.Binding
	Clear       key.Binding
	HistoryPrev key.Binding
	HistoryNext key.Binding
	SendMode    key.Binding
	Refresh     key.Binding
}

func NewAppKeys() AppKeys {
	return AppKeys{
		CommonKeys: NewCommonKeys(),
		ScrollKeys: NewScrollKeys(),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open port"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", `send + \n`),
		),
		Substitute: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", `send + \x1a`),
		),
		ToggleDTR: key.NewBinding(
			key.WithKeys("alt+d"),
			key.WithHelp("alt+d", "DTR"),
		),
		ToggleRTS: key.NewBinding(
			key.WithKeys("alt+r"),
			key.WithHelp("alt+r", "RTS"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("alt+h"),
			key.WithHelp("alt+h", "toggle hex"),
		),
		Clear: key.NewBinding(
			key.WithKeys("alt+c"),
			key.WithHelp("alt+c", "clear"),
		),
		HistoryPrev: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "previous input"),
		),
		HistoryNext: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next input"),
		),
		SendMode: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "ascii/hex"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "rescan ports"),
		),
	}
}

// ListingHelp is shown while the port list has focus
type ListingHelp struct{ AppKeys }

func (k ListingHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Select, k.NextPane, k.Help}
}

func (k ListingHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Select, k.Refresh, k.NextPane, k.Left, k.Right},
		{k.Help, k.Quit},
	}
}

// TermHelp is shown while the scrollback has focus
type TermHelp struct{ AppKeys }

func (k TermHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Up, k.Down, k.End, k.NextPane, k.Help}
}

func (k TermHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PgUp, k.PgDown, k.End},
		{k.ToggleHex, k.Clear, k.NextPane},
		{k.Help, k.Quit},
	}
}

// WritingHelp is shown while the write box has focus
type WritingHelp struct{ AppKeys }

func (k WritingHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Send, k.Substitute, k.ToggleDTR, k.ToggleRTS, k.Help}
}

func (k WritingHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Substitute, k.SendMode},
		{k.HistoryPrev, k.HistoryNext},
		{k.ToggleDTR, k.ToggleRTS},
		{k.Up, k.Down, k.End, k.NextPane},
		{k.Help, k.Quit},
	}
}
