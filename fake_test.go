package determ

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeConn is an in-memory Connection that records what the worker does to it
type fakeConn struct {
	mu        sync.Mutex
	name      string
	in        []byte
	written   bytes.Buffer
	events    []string
	closed    bool
	readErr   error
	writeErr  error
	signalErr error
	closeErr  error
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{name: name}
}

// Feed makes data available to Read
func (f *fakeConn) Feed(data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.in = append(f.in, data...)
}

func (f *fakeConn) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakeConn) Buffered() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrPortClosed
	}
	if f.readErr != nil {
		return 0, f.readErr
	}
	return len(f.in), nil
}

func (f *fakeConn) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrPortClosed
	}
	if f.readErr != nil {
		return 0, f.readErr
	}
	n := copy(buf, f.in)
	f.in = f.in[n:]
	return n, nil
}

func (f *fakeConn) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrPortClosed
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.written.Write(data)
}

func (f *fakeConn) SetDTR(level bool) error {
	return f.signal('d', level)
}

func (f *fakeConn) SetRTS(level bool) error {
	return f.signal('r', level)
}

func (f *fakeConn) signal(op byte, level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signalErr != nil {
		return f.signalErr
	}
	v := 0
	if level {
		v = 1
	}
	f.events = append(f.events, fmt.Sprintf("%c%d", op, v))
	return nil
}

// record appends a non-signal event such as a sleep
func (f *fakeConn) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrPortClosed
	}
	f.closed = true
	return f.closeErr
}

func (f *fakeConn) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

func (f *fakeConn) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeConn) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeOpener counts opens per device and hands out fakeConns
type fakeOpener struct {
	mu    sync.Mutex
	calls map[string]int
	conns map[string]*fakeConn
	fail  map[string]error
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		calls: make(map[string]int),
		conns: make(map[string]*fakeConn),
		fail:  make(map[string]error),
	}
}

func (o *fakeOpener) Open(name string) (Connection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[name]++
	if err := o.fail[name]; err != nil {
		return nil, &OpenError{Device: name, Err: err}
	}
	conn := newFakeConn(name)
	o.conns[name] = conn
	return conn, nil
}

func (o *fakeOpener) Fail(name string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail[name] = err
}

func (o *fakeOpener) Calls(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[name]
}

func (o *fakeOpener) Conn(name string) *fakeConn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conns[name]
}

// recordingSleeper logs each sleep into conn's event list without sleeping
func recordingSleeper(conn *fakeConn) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		conn.record(fmt.Sprintf("s%d", d.Milliseconds()))
		return ctx.Err()
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
