package determ

import "go.uber.org/atomic"

// CancelFlag asks the worker to abandon a pending line read. The presentation
// side sets it; the worker consumes it. Setting it twice before consumption
// has the same effect as setting it once.
type CancelFlag struct {
	set atomic.Bool
}

// Set raises the flag
func (c *CancelFlag) Set() {
	c.set.Store(true)
}

// Consume reports whether the flag was raised and lowers it in the same step
func (c *CancelFlag) Consume() bool {
	return c.set.CompareAndSwap(true, false)
}

// IsSet reports the flag without consuming it
func (c *CancelFlag) IsSet() bool {
	return c.set.Load()
}
