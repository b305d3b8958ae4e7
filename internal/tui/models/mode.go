package models

// Mode is the pane that has focus
type Mode int

const (
	ModeListing Mode = iota
	ModeTerm
	ModeWriting
)

func (m Mode) String() string {
	switch m {
	case ModeListing:
		return "PORTS"
	case ModeTerm:
		return "TERM"
	case ModeWriting:
		return "WRITE"
	default:
		return "PORTS"
	}
}

// Next cycles Listing, Term, Writing
func (m Mode) Next() Mode {
	return (m + 1) % 3
}

// Left moves focus to the pane on the left of m
func (m Mode) Left() Mode {
	switch m {
	case ModeTerm:
		return ModeListing
	case ModeWriting:
		return ModeListing
	default:
		return ModeTerm
	}
}

// Right moves focus to the pane on the right of m
func (m Mode) Right() Mode {
	switch m {
	case ModeListing:
		return ModeTerm
	case ModeTerm:
		return ModeWriting
	default:
		return ModeListing
	}
}
