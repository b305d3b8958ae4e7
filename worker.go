package determ

import (
	"context"
	"strings"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultCommandWait is how long an active worker waits for a command before
// reading from the device
const DefaultCommandWait = 10 * time.Millisecond

// Command is a request from the presentation side to the worker
type Command interface {
	command()
}

// ChangePort makes Device the active device, opening it if needed
type ChangePort struct {
	Device string
}

// WriteRaw writes Text unchanged to the active device
type WriteRaw struct {
	Text string
}

// WriteDTR runs the DTR reset script on the active device. Level is the state
// the caller is tracking and is echoed back in the Result.
type WriteDTR struct {
	Level bool
}

// WriteRTS runs the RTS reset script on the active device
type WriteRTS struct {
	Level bool
}

func (ChangePort) command() {}
func (WriteRaw) command()   {}
func (WriteDTR) command()   {}
func (WriteRTS) command()   {}

// ResultKind identifies what a Result reports on
type ResultKind int

const (
	ResultOpen ResultKind = iota
	ResultWrite
	ResultSignal
	ResultRead
)

func (k ResultKind) String() string {
	switch k {
	case ResultOpen:
		return "open"
	case ResultWrite:
		return "write"
	case ResultSignal:
		return "signal"
	case ResultRead:
		return "read"
	default:
		return "unknown"
	}
}

// Signal names a modem control line
type Signal string

const (
	SignalDTR Signal = "DTR"
	SignalRTS Signal = "RTS"
)

// Result reports the outcome of a command or a failed read
type Result struct {
	Kind   ResultKind
	Device string
	OK     bool
	Err    error
	Signal Signal // set for ResultSignal
	Level  bool   // set for ResultSignal
}

// Line is one text line received from, or written to, a device
type Line struct {
	Device   string
	Text     string
	Outbound bool
	Time     time.Time
}

// Worker is the only goroutine that touches devices. It takes commands from
// Send, keeps one device active, and publishes lines and results. Queues are
// unbounded; nothing is dropped when the consumer is slow.
type Worker struct {
	registry    *Registry
	assembler   *LineAssembler
	log         *zap.Logger
	commandWait time.Duration
	dtrScript   FlowScript
	rtsScript   FlowScript
	scriptSleep Sleeper
	cancel      *CancelFlag

	active     atomic.String
	readFailed map[string]bool

	commands *queue[Command]
	results  *queue[Result]
	lines    *queue[Line]
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithLogger sets the logger for the worker and its default assembler
func WithLogger(log *zap.Logger) WorkerOption {
	return func(w *Worker) {
		w.log = log
	}
}

// WithAssembler replaces the line assembler used for reads
func WithAssembler(a *LineAssembler) WorkerOption {
	return func(w *Worker) {
		w.assembler = a
	}
}

// WithCommandWait sets how long an active worker waits for a command per iteration
func WithCommandWait(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.commandWait = d
	}
}

// WithScripts replaces the DTR and RTS reset scripts
func WithScripts(dtr, rts FlowScript) WorkerOption {
	return func(w *Worker) {
		w.dtrScript = dtr
		w.rtsScript = rts
	}
}

// WithCancelFlag shares c with the worker instead of a private flag
func WithCancelFlag(c *CancelFlag) WorkerOption {
	return func(w *Worker) {
		w.cancel = c
	}
}

// WithScriptSleeper replaces the sleep used by flow-control scripts
func WithScriptSleeper(s Sleeper) WorkerOption {
	return func(w *Worker) {
		w.scriptSleep = s
	}
}

// NewWorker creates a worker that owns registry. Run must be called to start it.
func NewWorker(registry *Registry, opts ...WorkerOption) *Worker {
	w := &Worker{
		registry:    registry,
		log:         zap.NewNop(),
		commandWait: DefaultCommandWait,
		dtrScript:   DTRReset,
		rtsScript:   RTSReset,
		scriptSleep: ContextSleep,
		readFailed:  make(map[string]bool),
		commands:    newQueue[Command](),
		results:     newQueue[Result](),
		lines:       newQueue[Line](),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.cancel == nil {
		w.cancel = &CancelFlag{}
	}
	if w.assembler == nil {
		w.assembler = NewLineAssembler(WithAssemblerLogger(w.log))
	}
	return w
}

// Send queues a command without waiting for the worker. It returns
// ErrWorkerStopped once Run has returned.
func (w *Worker) Send(cmd Command) error {
	if !w.commands.Push(cmd) {
		return ErrWorkerStopped
	}
	return nil
}

// Results delivers command outcomes in order. It is closed when Run returns.
func (w *Worker) Results() <-chan Result {
	return w.results.Out()
}

// Lines delivers received and echoed lines in order. It is closed when Run returns.
func (w *Worker) Lines() <-chan Line {
	return w.lines.Out()
}

// Cancel returns the flag that interrupts a pending line read
func (w *Worker) Cancel() *CancelFlag {
	return w.cancel
}

// Active returns the active device name, or "" before the first successful ChangePort
func (w *Worker) Active() string {
	return w.active.Load()
}

// Run serves commands and reads lines until ctx ends. On return every device
// is closed, commands still queued are answered with ErrWorkerStopped, and the
// Results and Lines channels are closed.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := w.shutdown(); cerr != nil {
			err = cerr
		}
	}()

	w.log.Info("worker started", zap.Duration("command_wait", w.commandWait))
	commands := w.commands.Out()

	for {
		if ctx.Err() != nil {
			w.log.Info("worker stopped")
			return nil
		}

		if w.active.Load() == "" {
			select {
			case <-ctx.Done():
				w.log.Info("worker stopped")
				return nil
			case cmd := <-commands:
				w.handle(ctx, cmd)
			}
		} else {
			timer := time.NewTimer(w.commandWait)
			select {
			case <-ctx.Done():
				timer.Stop()
				w.log.Info("worker stopped")
				return nil
			case cmd := <-commands:
				timer.Stop()
				w.handle(ctx, cmd)
			case <-timer.C:
			}
		}

		if active := w.active.Load(); active != "" {
			w.readOnce(ctx, active)
		}
	}
}

func (w *Worker) shutdown() error {
	err := w.registry.Close()
	if err != nil {
		w.log.Error("failed to release devices", zap.Error(err))
	}
	w.active.Store("")

	w.commands.Close()
	for cmd := range w.commands.Out() {
		w.reject(cmd)
	}

	w.results.Close()
	w.lines.Close()
	return err
}

// reject answers a command that arrived too late to be served
func (w *Worker) reject(cmd Command) {
	w.log.Debug("rejecting command after stop", zap.Any("command", cmd))

	switch c := cmd.(type) {
	case ChangePort:
		w.results.Push(Result{Kind: ResultOpen, Device: c.Device, Err: ErrWorkerStopped})
	case WriteRaw:
		w.results.Push(Result{Kind: ResultWrite, Err: ErrWorkerStopped})
	case WriteDTR:
		w.results.Push(Result{Kind: ResultSignal, Signal: SignalDTR, Level: c.Level, Err: ErrWorkerStopped})
	case WriteRTS:
		w.results.Push(Result{Kind: ResultSignal, Signal: SignalRTS, Level: c.Level, Err: ErrWorkerStopped})
	}
}

func (w *Worker) handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case ChangePort:
		w.changePort(c.Device)
	case WriteRaw:
		w.writeRaw(c.Text)
	case WriteDTR:
		w.runScript(ctx, SignalDTR, w.dtrScript, c.Level)
	case WriteRTS:
		w.runScript(ctx, SignalRTS, w.rtsScript, c.Level)
	default:
		w.log.Warn("ignoring unknown command", zap.Any("command", cmd))
	}
}

func (w *Worker) changePort(device string) {
	if _, err := w.registry.EnsureOpen(device); err != nil {
		w.results.Push(Result{Kind: ResultOpen, Device: device, Err: err})
		return
	}

	prev := w.active.Swap(device)
	delete(w.readFailed, device)
	w.log.Info("active device changed", zap.String("from", prev), zap.String("to", device))
	w.results.Push(Result{Kind: ResultOpen, Device: device, OK: true})
}

func (w *Worker) writeRaw(text string) {
	device := w.active.Load()
	conn, ok := w.registry.Lookup(device)
	if !ok {
		w.results.Push(Result{Kind: ResultWrite, Err: ErrNoActiveDevice})
		return
	}

	w.lines.Push(Line{
		Device:   device,
		Text:     strings.TrimRight(text, "\r\n"),
		Outbound: true,
		Time:     time.Now(),
	})

	if _, err := conn.Write([]byte(text)); err != nil {
		w.log.Warn("write failed", zap.String("device", device), zap.Error(err))
		w.results.Push(Result{Kind: ResultWrite, Device: device, Err: err})
		return
	}
	w.results.Push(Result{Kind: ResultWrite, Device: device, OK: true})
}

func (w *Worker) runScript(ctx context.Context, signal Signal, script FlowScript, level bool) {
	device := w.active.Load()
	conn, ok := w.registry.Lookup(device)
	if !ok {
		w.results.Push(Result{Kind: ResultSignal, Signal: signal, Level: level, Err: ErrNoActiveDevice})
		return
	}

	w.log.Debug("running flow-control script",
		zap.String("device", device),
		zap.String("signal", string(signal)),
		zap.Stringer("script", script))

	err := script.Run(ctx, conn, w.scriptSleep)
	if err != nil {
		w.log.Warn("flow-control script failed", zap.String("device", device), zap.Error(err))
	}
	w.results.Push(Result{
		Kind:   ResultSignal,
		Device: device,
		OK:     err == nil,
		Err:    err,
		Signal: signal,
		Level:  level,
	})
}

// readOnce runs one framing read on the active device. A device error is
// reported once until the device produces a line again.
func (w *Worker) readOnce(ctx context.Context, device string) {
	conn, ok := w.registry.Lookup(device)
	if !ok {
		return
	}

	text, ok, err := w.assembler.ReadLine(ctx, device, conn, w.cancel)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if !w.readFailed[device] {
			w.readFailed[device] = true
			w.log.Error("read failed", zap.String("device", device), zap.Error(err))
			w.results.Push(Result{Kind: ResultRead, Device: device, Err: err})
		}
		_ = ContextSleep(ctx, w.commandWait)
		return
	}
	if !ok {
		return
	}

	delete(w.readFailed, device)
	w.lines.Push(Line{Device: device, Text: text, Time: time.Now()})
}
