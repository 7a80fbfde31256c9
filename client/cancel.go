package client

import (
	"context"
	"sync/atomic"
)

// Cancellation is a cooperative stop signal for one streaming turn. The
// controller owns it and may call Cancel from any goroutine; the stream
// checks IsCancelled between reads and its request is bound to Context.
type Cancellation struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewCancellation creates a handle that is not yet cancelled
func NewCancellation() *Cancellation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cancellation{ctx: ctx, cancel: cancel}
}

// Cancel marks the turn as cancelled and aborts any in-flight read.
// Calling it more than once has no further effect.
func (c *Cancellation) Cancel() {
	if c.cancelled.CompareAndSwap(false, true) {
		c.cancel()
	}
}

// IsCancelled reports whether Cancel has been called
func (c *Cancellation) IsCancelled() bool {
	return c.cancelled.Load()
}

// Context is cancelled together with the handle
func (c *Cancellation) Context() context.Context {
	return c.ctx
}
