package determ

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registry owns every device opened during a session, keyed by device name.
// Devices stay open until Close; switching away from a device never closes
// it. A Registry is used by a single goroutine.
type Registry struct {
	open  Opener
	log   *zap.Logger
	conns map[string]Connection
}

// NewRegistry creates an empty registry that opens devices with open
func NewRegistry(open Opener, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		open:  open,
		log:   log,
		conns: make(map[string]Connection),
	}
}

// EnsureOpen returns the connection for name, opening it on first use. A
// failed open leaves the registry unchanged.
func (r *Registry) EnsureOpen(name string) (Connection, error) {
	if conn, ok := r.conns[name]; ok {
		return conn, nil
	}

	conn, err := r.open(name)
	if err != nil {
		var openErr *OpenError
		if !errors.As(err, &openErr) {
			err = &OpenError{Device: name, Err: err}
		}
		r.log.Warn("failed to open device", zap.String("device", name), zap.Error(err))
		return nil, err
	}

	r.conns[name] = conn
	r.log.Info("device opened", zap.String("device", name), zap.Int("open", len(r.conns)))
	return conn, nil
}

// Lookup returns the connection for name if it is open
func (r *Registry) Lookup(name string) (Connection, bool) {
	conn, ok := r.conns[name]
	return conn, ok
}

// Names returns the open device names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of open devices
func (r *Registry) Len() int {
	return len(r.conns)
}

// Close closes every device and empties the registry
func (r *Registry) Close() error {
	var err error
	for _, name := range r.Names() {
		if cerr := r.conns[name].Close(); cerr != nil {
			r.log.Warn("failed to close device", zap.String("device", name), zap.Error(cerr))
			err = multierr.Append(err, fmt.Errorf("close %s: %w", name, cerr))
		}
		delete(r.conns, name)
	}
	return err
}
