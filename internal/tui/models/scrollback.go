package models

import determ "github.com/allbin/go-determ"

const DefaultScrollback = 1000

// ScrollBuffer keeps the newest lines of one port, evicting the oldest past capacity
type ScrollBuffer struct {
	capacity int
	lines    []determ.Line
}

func NewScrollBuffer(capacity int) *ScrollBuffer {
	if capacity <= 0 {
		capacity = DefaultScrollback
	}
	return &ScrollBuffer{capacity: capacity}
}

func (b *ScrollBuffer) Add(line determ.Line) {
	if len(b.lines) == b.capacity {
		copy(b.lines, b.lines[1:])
		b.lines[len(b.lines)-1] = line
		return
	}
	b.lines = append(b.lines, line)
}

// Lines returns the buffered lines, oldest first. The slice is only valid until the next Add.
func (b *ScrollBuffer) Lines() []determ.Line {
	return b.lines
}

func (b *ScrollBuffer) Len() int {
	return len(b.lines)
}

func (b *ScrollBuffer) Capacity() int {
	return b.capacity
}

func (b *ScrollBuffer) Clear() {
	b.lines = nil
}

// Scrollback holds one ScrollBuffer per port
type Scrollback struct {
	capacity int
	buffers  map[string]*ScrollBuffer
}

func NewScrollback(capacity int) *Scrollback {
	return &Scrollback{
		capacity: capacity,
		buffers:  make(map[string]*ScrollBuffer),
	}
}

// For returns the buffer of device, creating it on first use
func (s *Scrollback) For(device string) *ScrollBuffer {
	b, ok := s.buffers[device]
	if !ok {
		b = NewScrollBuffer(s.capacity)
		s.buffers[device] = b
	}
	return b
}

func (s *Scrollback) Add(line determ.Line) {
	s.For(line.Device).Add(line)
}
