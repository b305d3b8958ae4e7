package determ

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startWorker(t *testing.T, opener *fakeOpener, opts ...WorkerOption) (*Worker, context.CancelFunc, <-chan error) {
	t.Helper()

	opts = append([]WorkerOption{
		WithCommandWait(time.Millisecond),
		WithAssembler(NewLineAssembler(WithIdleSleep(time.Millisecond))),
	}, opts...)
	w := NewWorker(NewRegistry(opener.Open, nil), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		done <- w.Run(ctx)
		close(finished)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Error("worker did not stop")
		}
	})
	return w, cancel, done
}

// send queues cmd and interrupts a pending read so the worker picks it up
func send(t *testing.T, w *Worker, cmd Command) {
	t.Helper()
	require.NoError(t, w.Send(cmd))
	w.Cancel().Set()
}

func nextResult(t *testing.T, w *Worker) Result {
	t.Helper()
	select {
	case r := <-w.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for result")
		return Result{}
	}
}

func nextLine(t *testing.T, w *Worker) Line {
	t.Helper()
	select {
	case l := <-w.Lines():
		return l
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for line")
		return Line{}
	}
}

func TestWorkerChangePort(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	require.Equal(t, "", w.Active())

	send(t, w, ChangePort{Device: "/dev/ttyUSB0"})
	r := nextResult(t, w)
	require.Equal(t, ResultOpen, r.Kind)
	require.Equal(t, "/dev/ttyUSB0", r.Device)
	require.True(t, r.OK)
	require.NoError(t, r.Err)
	require.Equal(t, "/dev/ttyUSB0", w.Active())
}

func TestWorkerLineOrder(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	opener.Conn("a").Feed("L1\nL2\r\nL3\n")

	for _, want := range []string{"L1", "L2", "L3"} {
		l := nextLine(t, w)
		require.Equal(t, want, l.Text)
		require.Equal(t, "a", l.Device)
		require.False(t, l.Outbound)
	}
}

func TestWorkerSwitchPreservesConnections(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	for _, dev := range []string{"a", "b", "a"} {
		send(t, w, ChangePort{Device: dev})
		r := nextResult(t, w)
		require.True(t, r.OK, "open %s: %v", dev, r.Err)
		require.Equal(t, dev, w.Active())
	}

	require.Equal(t, 1, opener.Calls("a"))
	require.Equal(t, 1, opener.Calls("b"))
	require.False(t, opener.Conn("a").Closed())
	require.False(t, opener.Conn("b").Closed())

	opener.Conn("b").Feed("ignored\n")
	opener.Conn("a").Feed("from a\n")
	l := nextLine(t, w)
	require.Equal(t, "a", l.Device)
	require.Equal(t, "from a", l.Text)
}

func TestWorkerFailedChangePortKeepsActive(t *testing.T) {
	opener := newFakeOpener()
	opener.Fail("missing", ErrDeviceNotFound)
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	send(t, w, ChangePort{Device: "missing"})
	r := nextResult(t, w)
	require.Equal(t, ResultOpen, r.Kind)
	require.Equal(t, "missing", r.Device)
	require.False(t, r.OK)
	require.ErrorIs(t, r.Err, ErrDeviceNotFound)
	require.Equal(t, "a", w.Active())

	opener.Conn("a").Feed("still here\n")
	require.Equal(t, "still here", nextLine(t, w).Text)
}

func TestWorkerFailedFirstChangePort(t *testing.T) {
	opener := newFakeOpener()
	opener.Fail("missing", ErrPermissionDenied)
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "missing"})
	r := nextResult(t, w)
	require.False(t, r.OK)
	require.ErrorIs(t, r.Err, ErrPermissionDenied)
	require.Equal(t, "", w.Active())

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)
}

func TestWorkerWriteRaw(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	send(t, w, WriteRaw{Text: "AT\r\n"})
	echo := nextLine(t, w)
	require.True(t, echo.Outbound)
	require.Equal(t, "AT", echo.Text)
	require.Equal(t, "a", echo.Device)

	r := nextResult(t, w)
	require.Equal(t, ResultWrite, r.Kind)
	require.True(t, r.OK)
	require.Equal(t, "AT\r\n", opener.Conn("a").Written())
}

func TestWorkerWriteSubstitute(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	send(t, w, WriteRaw{Text: "exit\x1a"})
	require.True(t, nextResult(t, w).OK)
	require.Equal(t, "exit\x1a", opener.Conn("a").Written())
}

func TestWorkerWriteBeforeActive(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, WriteRaw{Text: "hello\n"})
	r := nextResult(t, w)
	require.Equal(t, ResultWrite, r.Kind)
	require.False(t, r.OK)
	require.ErrorIs(t, r.Err, ErrNoActiveDevice)

	send(t, w, WriteDTR{Level: true})
	r = nextResult(t, w)
	require.Equal(t, ResultSignal, r.Kind)
	require.ErrorIs(t, r.Err, ErrNoActiveDevice)
}

func TestWorkerWriteError(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	broken := errors.New("input/output error")
	conn := opener.Conn("a")
	conn.mu.Lock()
	conn.writeErr = broken
	conn.mu.Unlock()

	send(t, w, WriteRaw{Text: "x\n"})
	r := nextResult(t, w)
	require.Equal(t, ResultWrite, r.Kind)
	require.False(t, r.OK)
	require.ErrorIs(t, r.Err, broken)
}

type sleepLog struct {
	mu sync.Mutex
	d  []time.Duration
}

func (s *sleepLog) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = append(s.d, d)
	return nil
}

func (s *sleepLog) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.d...)
}

func TestWorkerDTRScript(t *testing.T) {
	opener := newFakeOpener()
	sleeps := &sleepLog{}
	w, _, _ := startWorker(t, opener, WithScriptSleeper(sleeps.Sleep))

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	send(t, w, WriteDTR{Level: true})
	r := nextResult(t, w)
	require.Equal(t, ResultSignal, r.Kind)
	require.Equal(t, SignalDTR, r.Signal)
	require.True(t, r.OK)
	require.True(t, r.Level)

	require.Equal(t, []string{"r1", "d0", "d1", "r0"}, opener.Conn("a").Events())
	require.Equal(t, []time.Duration{time.Second}, sleeps.Durations())
}

func TestWorkerRTSScript(t *testing.T) {
	opener := newFakeOpener()
	sleeps := &sleepLog{}
	w, _, _ := startWorker(t, opener, WithScriptSleeper(sleeps.Sleep))

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	send(t, w, WriteRTS{Level: false})
	r := nextResult(t, w)
	require.Equal(t, SignalRTS, r.Signal)
	require.True(t, r.OK)
	require.False(t, r.Level)

	want := []string{"r0", "d0", "d1", "r0", "r1", "d0", "r1", "r0", "d0"}
	require.Equal(t, want, opener.Conn("a").Events())
	require.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}, sleeps.Durations())
}

func TestWorkerCustomScripts(t *testing.T) {
	opener := newFakeOpener()
	custom := MustParseFlowScript("d0:s1:d1")
	w, _, _ := startWorker(t, opener, WithScripts(custom, custom))

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	send(t, w, WriteDTR{Level: false})
	require.True(t, nextResult(t, w).OK)
	require.Equal(t, []string{"d0", "d1"}, opener.Conn("a").Events())
}

func TestWorkerScriptFailure(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	conn := opener.Conn("a")
	conn.mu.Lock()
	conn.signalErr = ErrPortClosed
	conn.mu.Unlock()

	send(t, w, WriteRTS{Level: true})
	r := nextResult(t, w)
	require.False(t, r.OK)
	require.ErrorIs(t, r.Err, ErrPortClosed)
}

func TestWorkerCancelKeepsPartialLine(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	conn := opener.Conn("a")
	conn.Feed("par")
	require.Eventually(t, func() bool {
		n, _ := conn.Buffered()
		return n == 0
	}, time.Second, time.Millisecond)

	send(t, w, WriteRaw{Text: "x\n"})
	require.Equal(t, "x", nextLine(t, w).Text)
	require.True(t, nextResult(t, w).OK)

	conn.Feed("tial\n")
	l := nextLine(t, w)
	require.Equal(t, "partial", l.Text)
	require.False(t, l.Outbound)
}

func TestWorkerUnboundedLines(t *testing.T) {
	opener := newFakeOpener()
	w, stop, done := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	const n = 500
	conn := opener.Conn("a")
	for i := 0; i < n; i++ {
		conn.Feed("line\n")
	}
	require.Eventually(t, func() bool {
		left, _ := conn.Buffered()
		return left == 0
	}, 5*time.Second, time.Millisecond)

	stop()
	require.NoError(t, <-done)

	count := 0
	for range w.Lines() {
		count++
	}
	require.Equal(t, n, count)
}

func TestWorkerReadErrorReportedOnce(t *testing.T) {
	opener := newFakeOpener()
	w, _, _ := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	unplugged := errors.New("no such device")
	opener.Conn("a").FailReads(unplugged)

	r := nextResult(t, w)
	require.Equal(t, ResultRead, r.Kind)
	require.Equal(t, "a", r.Device)
	require.ErrorIs(t, r.Err, unplugged)

	select {
	case r := <-w.Results():
		t.Fatalf("unexpected second result %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	send(t, w, ChangePort{Device: "b"})
	r = nextResult(t, w)
	require.Equal(t, ResultOpen, r.Kind)
	require.True(t, r.OK)
}

func TestWorkerRunReleasesDevices(t *testing.T) {
	opener := newFakeOpener()
	w, stop, done := startWorker(t, opener)

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)
	send(t, w, ChangePort{Device: "b"})
	require.True(t, nextResult(t, w).OK)

	stop()
	require.NoError(t, <-done)

	require.True(t, opener.Conn("a").Closed())
	require.True(t, opener.Conn("b").Closed())

	_, ok := <-w.Results()
	require.False(t, ok)
	_, ok = <-w.Lines()
	require.False(t, ok)
}

func TestWorkerStopsWhileUninitialized(t *testing.T) {
	opener := newFakeOpener()
	_, stop, done := startWorker(t, opener)

	stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func newIdleWorker(opener *fakeOpener) *Worker {
	return NewWorker(NewRegistry(opener.Open, nil),
		WithCommandWait(time.Millisecond),
		WithAssembler(NewLineAssembler(WithIdleSleep(time.Millisecond))))
}

func TestWorkerStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	opener := newFakeOpener()
	w := newIdleWorker(opener)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	send(t, w, ChangePort{Device: "a"})
	require.True(t, nextResult(t, w).OK)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	require.ErrorIs(t, w.Send(ChangePort{Device: "b"}), ErrWorkerStopped)
	require.Equal(t, "", w.Active())
	require.Equal(t, 0, opener.Calls("b"))

	_, ok := <-w.Results()
	require.False(t, ok)
	_, ok = <-w.Lines()
	require.False(t, ok)
}

func TestWorkerAnswersQueuedCommandsOnStop(t *testing.T) {
	opener := newFakeOpener()
	w := newIdleWorker(opener)

	for _, cmd := range []Command{
		ChangePort{Device: "a"},
		WriteRaw{Text: "AT\r\n"},
		WriteDTR{Level: true},
		WriteRTS{Level: false},
	} {
		require.NoError(t, w.Send(cmd))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	var got []Result
	for r := range w.Results() {
		got = append(got, r)
	}
	require.Len(t, got, 4)
	for _, r := range got {
		require.False(t, r.OK)
		require.ErrorIs(t, r.Err, ErrWorkerStopped)
	}
	require.Equal(t, ResultOpen, got[0].Kind)
	require.Equal(t, "a", got[0].Device)
	require.Equal(t, ResultWrite, got[1].Kind)
	require.Equal(t, Result{Kind: ResultSignal, Signal: SignalDTR, Level: true, Err: ErrWorkerStopped}, got[2])
	require.Equal(t, SignalRTS, got[3].Signal)

	require.Equal(t, 0, opener.Calls("a"))
	require.ErrorIs(t, w.Send(WriteRaw{Text: "late"}), ErrWorkerStopped)
}

func TestResultKindString(t *testing.T) {
	kinds := map[ResultKind]string{
		ResultOpen:     "open",
		ResultWrite:    "write",
		ResultSignal:   "signal",
		ResultRead:     "read",
		ResultKind(42): "unknown",
	}
	got := map[ResultKind]string{}
	for k := range kinds {
		got[k] = k.String()
	}
	if !reflect.DeepEqual(got, kinds) {
		t.Errorf("String() = %v, want %v", got, kinds)
	}
}
