package determ

import (
	"errors"
	"fmt"
)

// Open and configuration failures, matched with errors.Is
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrUnknownDriver    = errors.New("unknown serial driver")

	ErrInvalidScript  = errors.New("invalid flow-control script")
	ErrNoActiveDevice = errors.New("no active serial device")
	ErrWorkerStopped  = errors.New("serial worker stopped")
)

// OpenError reports a device that could not be opened. The registry never
// stores a device whose open failed.
type OpenError struct {
	Device string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Device, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
