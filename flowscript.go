package determ

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Op is a flow-control script opcode
type Op byte

const (
	OpDTR   Op = 'd' // set DTR to Value (0 or 1)
	OpRTS   Op = 'r' // set RTS to Value (0 or 1)
	OpSleep Op = 's' // wait Value milliseconds
)

// Canonical reset sequences
const (
	DTRResetScript = "r1:d0:s1000:d1:r0"
	RTSResetScript = "r0:d0:s100:d1:r0:s100:r1:d0:r1:s100:r0:d0"
)

var (
	DTRReset = MustParseFlowScript(DTRResetScript)
	RTSReset = MustParseFlowScript(RTSResetScript)
)

// Step is one instruction of a FlowScript
type Step struct {
	Op    Op
	Value int
}

func (s Step) String() string {
	return string(s.Op) + strconv.Itoa(s.Value)
}

// FlowScript is a parsed sequence of DTR/RTS/sleep steps, such as
// "r1:d0:s1000:d1:r0". A parsed script is never modified.
type FlowScript []Step

// Sleeper waits for d or until ctx ends
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep sleeps for d and returns early only when ctx is done
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseFlowScript parses the colon-separated script text
func ParseFlowScript(text string) (FlowScript, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty script", ErrInvalidScript)
	}

	tokens := strings.Split(text, ":")
	script := make(FlowScript, 0, len(tokens))
	for i, tok := range tokens {
		if len(tok) < 2 {
			return nil, fmt.Errorf("%w: step %d %q is too short", ErrInvalidScript, i, tok)
		}

		value, err := strconv.Atoi(tok[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: step %d %q: bad value", ErrInvalidScript, i, tok)
		}

		op := Op(tok[0])
		switch op {
		case OpDTR, OpRTS:
			if value != 0 && value != 1 {
				return nil, fmt.Errorf("%w: step %d %q: level must be 0 or 1", ErrInvalidScript, i, tok)
			}
		case OpSleep:
			if value < 0 {
				return nil, fmt.Errorf("%w: step %d %q: negative sleep", ErrInvalidScript, i, tok)
			}
		default:
			return nil, fmt.Errorf("%w: step %d %q: unknown opcode %q", ErrInvalidScript, i, tok, tok[0])
		}

		script = append(script, Step{Op: op, Value: value})
	}
	return script, nil
}

// MustParseFlowScript is like ParseFlowScript but panics on malformed input
func MustParseFlowScript(text string) FlowScript {
	script, err := ParseFlowScript(text)
	if err != nil {
		panic(err)
	}
	return script
}

// Run executes the steps in order. Sleep steps block for their full duration
// unless ctx ends. The first failing step stops the run.
func (f FlowScript) Run(ctx context.Context, conn SignalController, sleep Sleeper) error {
	if sleep == nil {
		sleep = ContextSleep
	}

	for i, step := range f {
		var err error
		switch step.Op {
		case OpDTR:
			err = conn.SetDTR(step.Value == 1)
		case OpRTS:
			err = conn.SetRTS(step.Value == 1)
		case OpSleep:
			err = sleep(ctx, time.Duration(step.Value)*time.Millisecond)
		default:
			err = ErrInvalidScript
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step, err)
		}
	}
	return nil
}

// String encodes the script in its textual form
func (f FlowScript) String() string {
	parts := make([]string, len(f))
	for i, step := range f {
		parts[i] = step.String()
	}
	return strings.Join(parts, ":")
}

// Duration is the total time spent in sleep steps
func (f FlowScript) Duration() time.Duration {
	var total time.Duration
	for _, step := range f {
		if step.Op == OpSleep {
			total += time.Duration(step.Value) * time.Millisecond
		}
	}
	return total
}
