package determ

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// port drives a tty through termios ioctls
type port struct {
	mu     sync.RWMutex
	fd     int
	config Config
	closed bool
}

var _ Connection = (*port)(nil)

// termiosSpeeds are the rates the native driver can program
var termiosSpeeds = map[int]uint32{
	1200:    unix.B1200,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	3000000: unix.B3000000,
	4000000: unix.B4000000,
}

var termiosCharSizes = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

func termiosSpeed(rate int) (uint32, error) {
	speed, ok := termiosSpeeds[rate]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBaudRate, rate)
	}
	return speed, nil
}

// classifyErrno maps the open(2) errno to the package sentinels
func classifyErrno(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		return ErrDeviceInUse
	default:
		return err
	}
}

// openNative opens the device node and puts it in raw mode. The node is opened
// non-blocking so a missing carrier cannot hang the caller, then switched back.
func openNative(device string, config Config) (Connection, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, classifyErrno(err)
	}

	if err := makeRaw(fd, config); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("clear O_NONBLOCK on %s: %w", device, err)
	}

	// Claim the line; a second opener gets EBUSY.
	if err := claimExclusive(fd); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("claim %s: %w", device, classifyErrno(err))
	}

	return &port{fd: fd, config: config}, nil
}

// Replaced in tests
var claimExclusive = func(fd int) error {
	return unix.IoctlSetInt(fd, unix.TIOCEXCL, 0)
}

// makeRaw programs the line discipline: no echo or translation, receiver on,
// modem status ignored, reads return after VTIME tenths at most.
func makeRaw(fd int, config Config) error {
	speed, err := termiosSpeed(config.BaudRate)
	if err != nil {
		return err
	}
	size, ok := termiosCharSizes[config.DataBits]
	if !ok {
		size = unix.CS8
	}

	cflag := unix.CREAD | unix.CLOCAL | speed | size
	if config.StopBits == 2 {
		cflag |= unix.CSTOPB
	}
	if config.Parity != ParityNone {
		cflag |= unix.PARENB
	}
	if config.Parity == ParityOdd {
		cflag |= unix.PARODD
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("tcgets: %w", err)
	}
	*t = unix.Termios{Cflag: cflag, Ispeed: speed, Ospeed: speed, Cc: t.Cc}
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = config.readTimeoutTenths()

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("tcsets: %w", err)
	}
	return nil
}

func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return unix.Close(p.fd)
}

// Read returns what arrived within the VTIME window, possibly nothing
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	n, err := unix.Read(p.fd, buf)
	if n < 0 {
		n = 0
	}
	return n, err
}

// Write retries short writes until data is drained
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	written := 0
	for written < len(data) {
		n, err := unix.Write(p.fd, data[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return written, err
		}
		written += n
	}
	return written, nil
}

// Buffered is the TIOCINQ count
func (p *port) Buffered() (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return unix.IoctlGetInt(p.fd, unix.TIOCINQ)
}

func (p *port) SetDTR(state bool) error {
	return p.setModemBit(unix.TIOCM_DTR, state)
}

func (p *port) SetRTS(state bool) error {
	return p.setModemBit(unix.TIOCM_RTS, state)
}

func (p *port) setModemBit(bit int, state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	if state {
		return unix.IoctlSetPointerInt(p.fd, unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetPointerInt(p.fd, unix.TIOCMBIC, bit)
}
