package logic

import (
	"context"
)

// Deps is handed to validate, transform and process functions.
type Deps struct {
	Action *Action
	Name   string
	// Values is shared by the intercept and process of one lifecycle.
	Values map[string]any
	// Extra holds dependencies injected with WithDeps.
	Extra  map[string]any
	Logger Logger

	ctx       context.Context
	cancelled <-chan struct{}
	getState  func() any
}

// GetState returns the host state, or nil if the host has none.
func (d *Deps) GetState() any {
	if d == nil || d.getState == nil {
		return nil
	}
	return d.getState()
}

// Context is cancelled when the lifecycle is cancelled or ends. The cause is
// an ErrCancelled clone on cancellation.
func (d *Deps) Context() context.Context {
	if d == nil || d.ctx == nil {
		return context.Background()
	}
	return d.ctx
}

// Cancelled is closed once the lifecycle is cancelled.
func (d *Deps) Cancelled() <-chan struct{} {
	if d == nil {
		return nil
	}
	return d.cancelled
}
