package determ

import (
	"errors"
	"sync"
	"time"

	"go.bug.st/serial"
)

// bugstPollTimeout bounds the probe read used to answer Buffered
const bugstPollTimeout = time.Millisecond

// serialPort is the part of go.bug.st/serial.Port the bugst driver uses
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	Close() error
}

// Replaced in tests
var serialOpener = func(name string, mode *serial.Mode) (serialPort, error) {
	return serial.Open(name, mode)
}

// bugstPort adapts go.bug.st/serial to Connection. The library has no input
// queue query, so Buffered probes with a short read and keeps what it got.
type bugstPort struct {
	mu      sync.Mutex
	port    serialPort
	pending []byte
	scratch []byte
	closed  bool
}

var _ Connection = (*bugstPort)(nil)

func openBugst(device string, config Config) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
	}

	switch config.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	if config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}

	p, err := serialOpener(device, mode)
	if err != nil {
		return nil, classifyPortError(err)
	}

	if err := p.SetReadTimeout(bugstPollTimeout); err != nil {
		p.Close()
		return nil, err
	}

	return &bugstPort{port: p, scratch: make([]byte, 256)}, nil
}

// classifyPortError maps go.bug.st/serial error codes to the package sentinels
func classifyPortError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return ErrDeviceNotFound
	case serial.PermissionDenied:
		return ErrPermissionDenied
	case serial.PortBusy:
		return ErrDeviceInUse
	case serial.InvalidSpeed:
		return ErrInvalidBaudRate
	default:
		return err
	}
}

func (b *bugstPort) Buffered() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrPortClosed
	}
	if len(b.pending) > 0 {
		return len(b.pending), nil
	}
	n, err := b.port.Read(b.scratch)
	if err != nil {
		return 0, err
	}
	b.pending = append(b.pending, b.scratch[:n]...)
	return len(b.pending), nil
}

func (b *bugstPort) Read(buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrPortClosed
	}
	if len(b.pending) > 0 {
		n := copy(buf, b.pending)
		b.pending = b.pending[n:]
		return n, nil
	}
	return b.port.Read(buf)
}

func (b *bugstPort) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrPortClosed
	}
	return b.port.Write(data)
}

func (b *bugstPort) SetDTR(level bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrPortClosed
	}
	return b.port.SetDTR(level)
}

func (b *bugstPort) SetRTS(level bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrPortClosed
	}
	return b.port.SetRTS(level)
}

func (b *bugstPort) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrPortClosed
	}
	b.closed = true
	b.pending = nil
	return b.port.Close()
}
