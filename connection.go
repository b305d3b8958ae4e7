package determ

// SignalController is the subset of a Connection a flow-control script needs
type SignalController interface {
	SetDTR(level bool) error
	SetRTS(level bool) error
}

// Connection is an exclusively owned handle to one open device. Only the
// Worker reads, writes or toggles signals on a Connection.
type Connection interface {
	SignalController
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	// Buffered reports how many bytes can be read without blocking.
	Buffered() (int, error)
	Close() error
}

// Opener opens the device with the given name
type Opener func(device string) (Connection, error)

// Open opens a device with the given options. Every failure is returned as
// an *OpenError so callers can report the device name.
func Open(device string, opts ...Option) (Connection, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, &OpenError{Device: device, Err: err}
		}
	}

	var (
		conn Connection
		err  error
	)
	switch config.Driver {
	case DriverNative:
		conn, err = openNative(device, config)
	case DriverBugst:
		conn, err = openBugst(device, config)
	default:
		err = ErrUnknownDriver
	}
	if err != nil {
		return nil, &OpenError{Device: device, Err: err}
	}

	if config.InitialDTR != nil {
		if err := conn.SetDTR(*config.InitialDTR); err != nil {
			conn.Close()
			return nil, &OpenError{Device: device, Err: err}
		}
	}
	if config.InitialRTS != nil {
		if err := conn.SetRTS(*config.InitialRTS); err != nil {
			conn.Close()
			return nil, &OpenError{Device: device, Err: err}
		}
	}
	return conn, nil
}

// NewOpener returns an Opener that applies the same options to every device
func NewOpener(opts ...Option) Opener {
	return func(device string) (Connection, error) {
		return Open(device, opts...)
	}
}
