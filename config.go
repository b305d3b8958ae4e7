package determ

import (
	"fmt"
	"time"
)

const (
	vtimeUnit      = 100 * time.Millisecond
	maxReadTimeout = 255 * vtimeUnit
)

// Driver selects the backend used to talk to a device
type Driver string

const (
	DriverNative Driver = "native" // termios via golang.org/x/sys/unix
	DriverBugst  Driver = "bugst"  // go.bug.st/serial
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// Config holds the communication parameters applied to every opened device
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	ReadTimeout time.Duration // rounded to VTIME tenths by the native driver
	Driver      Driver
	InitialDTR  *bool
	InitialRTS  *bool
}

// Option adjusts a Config and rejects values the drivers cannot honor
type Option func(*Config) error

// DefaultConfig is 115200 8N1 with a 100ms read window on the native driver
func DefaultConfig() Config {
	return Config{
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      ParityNone,
		ReadTimeout: 100 * time.Millisecond,
		Driver:      DriverNative,
	}
}

// WithBaudRate accepts only the rates termios has a constant for
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := termiosSpeed(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits takes a character size from 5 to 8
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if _, ok := termiosCharSizes[bits]; !ok {
			return fmt.Errorf("%w: %d data bits", ErrInvalidConfig, bits)
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits takes 1 or 2
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return fmt.Errorf("%w: %d stop bits", ErrInvalidConfig, bits)
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityEven {
			return fmt.Errorf("%w: parity %d", ErrInvalidConfig, parity)
		}
		c.Parity = parity
		return nil
	}
}

// WithReadTimeout sets the per-read timeout. It must be a multiple of 100ms
// between 0 and 25.5s since termios counts in tenths of a second.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > maxReadTimeout || timeout%vtimeUnit != 0 {
			return fmt.Errorf("%w: read timeout %v", ErrInvalidConfig, timeout)
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithDriver picks native or bugst
func WithDriver(d Driver) Option {
	return func(c *Config) error {
		if d != DriverNative && d != DriverBugst {
			return fmt.Errorf("%w: %q", ErrUnknownDriver, d)
		}
		c.Driver = d
		return nil
	}
}

// WithInitialDTR sets the DTR level applied right after the device is opened
func WithInitialDTR(level bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &level
		return nil
	}
}

// WithInitialRTS sets the RTS level applied right after the device is opened
func WithInitialRTS(level bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &level
		return nil
	}
}

func (c Config) readTimeoutTenths() uint8 {
	return uint8(c.ReadTimeout / vtimeUnit)
}
