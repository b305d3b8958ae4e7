package determ

import (
	"bytes"
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DefaultIdleSleep is how long ReadLine waits when a device has nothing buffered
const DefaultIdleSleep = 10 * time.Millisecond

// LineAssembler turns a byte stream into newline-terminated text lines. It
// keeps one accumulator per device, so bytes received before a cancelled read
// are still part of the next line from that device.
type LineAssembler struct {
	idleSleep time.Duration
	sleep     Sleeper
	log       *zap.Logger
	pending   map[string][]byte
	one       [1]byte
}

// AssemblerOption configures a LineAssembler
type AssemblerOption func(*LineAssembler)

// WithIdleSleep sets the pause between polls of an idle device
func WithIdleSleep(d time.Duration) AssemblerOption {
	return func(a *LineAssembler) {
		a.idleSleep = d
	}
}

// WithSleeper replaces the idle pause, mainly for tests
func WithSleeper(s Sleeper) AssemblerOption {
	return func(a *LineAssembler) {
		a.sleep = s
	}
}

// WithAssemblerLogger sets the logger used for dropped lines
func WithAssemblerLogger(log *zap.Logger) AssemblerOption {
	return func(a *LineAssembler) {
		a.log = log
	}
}

// NewLineAssembler returns an assembler with no partial lines buffered
func NewLineAssembler(opts ...AssemblerOption) *LineAssembler {
	a := &LineAssembler{
		idleSleep: DefaultIdleSleep,
		sleep:     ContextSleep,
		log:       zap.NewNop(),
		pending:   make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ReadLine blocks until conn delivers a full line, cancel is raised or ctx
// ends. It returns ok=false without an error when the read was cancelled or
// the line was not valid UTF-8. The line excludes its "\n" or "\r\n".
func (a *LineAssembler) ReadLine(ctx context.Context, device string, conn Connection, cancel *CancelFlag) (string, bool, error) {
	for {
		n, err := conn.Buffered()
		if err != nil {
			return "", false, err
		}

		if n > 0 {
			got, err := conn.Read(a.one[:])
			if err != nil {
				return "", false, err
			}
			if got == 0 {
				continue
			}

			buf := append(a.pending[device], a.one[0])
			if a.one[0] != '\n' {
				a.pending[device] = buf
				continue
			}

			delete(a.pending, device)
			return a.decode(device, buf)
		}

		if cancel != nil && cancel.Consume() {
			return "", false, nil
		}

		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		if err := a.sleep(ctx, a.idleSleep); err != nil {
			return "", false, err
		}
	}
}

// Pending returns the bytes accumulated for device so far
func (a *LineAssembler) Pending(device string) []byte {
	return a.pending[device]
}

// Reset drops the partial line held for device
func (a *LineAssembler) Reset(device string) {
	delete(a.pending, device)
}

func (a *LineAssembler) decode(device string, buf []byte) (string, bool, error) {
	valid, _, err := transform.Bytes(encoding.UTF8Validator, buf)
	if err != nil {
		a.log.Debug("dropping undecodable line",
			zap.String("device", device),
			zap.Int("bytes", len(buf)),
			zap.Error(err))
		return "", false, nil
	}

	if i := bytes.Index(valid, []byte("\r\n")); i >= 0 {
		return string(valid[:i]), true, nil
	}
	return string(valid[:bytes.IndexByte(valid, '\n')]), true, nil
}
