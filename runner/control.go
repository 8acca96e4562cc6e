package runner

import (
	"errors"
	"sync"
)

// ErrCanceled is the cause recorded when Cancel is called without one.
var ErrCanceled = errors.New("execution canceled")

// ExecutionControl is the read side of a cancellation token.
type ExecutionControl interface {
	Done() <-chan struct{}
	CancelCause() error
}

// Control is a single-fire cancellation token. Once canceled it stays
// canceled; there is no reset.
type Control struct {
	mu     sync.RWMutex
	doneCh chan struct{}
	cause  error
}

// NewControl creates an armed control.
func NewControl() *Control {
	return &Control{doneCh: make(chan struct{})}
}

// Done is closed when the control is canceled.
func (c *Control) Done() <-chan struct{} {
	if c == nil {
		return nil
	}
	return c.doneCh
}

// CancelCause returns the cause passed to the first Cancel, or nil.
func (c *Control) CancelCause() error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cause
}

// Cancelled reports whether Cancel has been called.
func (c *Control) Cancelled() bool {
	if c == nil {
		return false
	}
	select {
	case <-c.doneCh:
		return true
	default:
		return false
	}
}

// Cancel fires the control. It returns true only for the call that fired it.
func (c *Control) Cancel(cause error) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.doneCh:
		return false
	default:
	}
	if cause == nil {
		cause = ErrCanceled
	}
	c.cause = cause
	close(c.doneCh)
	return true
}
