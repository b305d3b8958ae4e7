package determ

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReadLineEndings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"crlf", "hello\r\n", "hello"},
		{"lf", "hello\n", "hello"},
		{"empty", "\n", ""},
		{"empty crlf", "\r\n", ""},
		{"utf8", "température 21°C\r\n", "température 21°C"},
		{"bare cr inside", "a\rb\n", "a\rb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn("dev")
			conn.Feed(tt.input)

			a := NewLineAssembler(WithIdleSleep(time.Millisecond))
			line, ok, err := a.ReadLine(testContext(t), "dev", conn, &CancelFlag{})
			if err != nil {
				t.Fatalf("ReadLine failed: %v", err)
			}
			if !ok {
				t.Fatal("Expected a line")
			}
			if line != tt.want {
				t.Errorf("line = %q, want %q", line, tt.want)
			}
			if len(a.Pending("dev")) != 0 {
				t.Errorf("accumulator not reset: %q", a.Pending("dev"))
			}
		})
	}
}

func TestReadLineInvalidUTF8(t *testing.T) {
	conn := newFakeConn("dev")
	conn.Feed("\xff\xfe\n")
	conn.Feed("next\n")

	a := NewLineAssembler(WithIdleSleep(time.Millisecond))
	ctx := testContext(t)

	line, ok, err := a.ReadLine(ctx, "dev", conn, &CancelFlag{})
	if err != nil {
		t.Fatalf("ReadLine failed: %v", err)
	}
	if ok {
		t.Errorf("Expected no line for invalid UTF-8, got %q", line)
	}

	line, ok, err = a.ReadLine(ctx, "dev", conn, &CancelFlag{})
	if err != nil || !ok || line != "next" {
		t.Errorf("ReadLine = (%q, %v, %v), want (\"next\", true, nil)", line, ok, err)
	}
}

func TestReadLineOnePerCall(t *testing.T) {
	conn := newFakeConn("dev")
	conn.Feed("one\ntwo\nthree\n")

	a := NewLineAssembler(WithIdleSleep(time.Millisecond))
	ctx := testContext(t)

	for _, want := range []string{"one", "two", "three"} {
		line, ok, err := a.ReadLine(ctx, "dev", conn, nil)
		if err != nil || !ok {
			t.Fatalf("ReadLine = (%q, %v, %v)", line, ok, err)
		}
		if line != want {
			t.Errorf("line = %q, want %q", line, want)
		}
	}
}

func TestReadLineCancelKeepsPartialLine(t *testing.T) {
	conn := newFakeConn("dev")
	conn.Feed("hel")

	cancel := &CancelFlag{}
	var sleeps int
	a := NewLineAssembler(WithSleeper(func(ctx context.Context, d time.Duration) error {
		sleeps++
		if sleeps == 3 {
			cancel.Set()
		}
		return nil
	}))
	ctx := testContext(t)

	line, ok, err := a.ReadLine(ctx, "dev", conn, cancel)
	if err != nil {
		t.Fatalf("ReadLine failed: %v", err)
	}
	if ok {
		t.Fatalf("Expected cancelled read, got %q", line)
	}
	if cancel.IsSet() {
		t.Error("Expected flag to be consumed")
	}
	if got := string(a.Pending("dev")); got != "hel" {
		t.Errorf("pending = %q, want %q", got, "hel")
	}

	conn.Feed("lo\n")
	line, ok, err = a.ReadLine(ctx, "dev", conn, cancel)
	if err != nil || !ok || line != "hello" {
		t.Errorf("ReadLine = (%q, %v, %v), want (\"hello\", true, nil)", line, ok, err)
	}
}

func TestReadLineCancelBeforeCall(t *testing.T) {
	conn := newFakeConn("dev")
	cancel := &CancelFlag{}
	cancel.Set()

	a := NewLineAssembler()
	_, ok, err := a.ReadLine(testContext(t), "dev", conn, cancel)
	if err != nil || ok {
		t.Errorf("ReadLine = (_, %v, %v), want (_, false, nil)", ok, err)
	}
}

func TestReadLineSeparateDevices(t *testing.T) {
	a := NewLineAssembler(WithIdleSleep(time.Millisecond))
	ctx := testContext(t)
	cancel := &CancelFlag{}

	devA := newFakeConn("a")
	devA.Feed("from-a")
	cancel.Set()
	a.ReadLine(ctx, "a", devA, cancel) // leaves "from-a" pending

	devB := newFakeConn("b")
	devB.Feed("from-b\n")
	line, ok, err := a.ReadLine(ctx, "b", devB, cancel)
	if err != nil || !ok || line != "from-b" {
		t.Errorf("ReadLine(b) = (%q, %v, %v)", line, ok, err)
	}
	if got := string(a.Pending("a")); got != "from-a" {
		t.Errorf("pending(a) = %q, want %q", got, "from-a")
	}

	a.Reset("a")
	if len(a.Pending("a")) != 0 {
		t.Error("Reset did not clear pending bytes")
	}
}

func TestReadLineDeviceError(t *testing.T) {
	conn := newFakeConn("dev")
	gone := errors.New("device unplugged")
	conn.FailReads(gone)

	a := NewLineAssembler()
	_, ok, err := a.ReadLine(testContext(t), "dev", conn, nil)
	if !errors.Is(err, gone) || ok {
		t.Errorf("ReadLine = (_, %v, %v), want device error", ok, err)
	}
}

func TestReadLineContextDone(t *testing.T) {
	conn := newFakeConn("dev")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	a := NewLineAssembler(WithIdleSleep(time.Millisecond))
	_, _, err := a.ReadLine(ctx, "dev", conn, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
