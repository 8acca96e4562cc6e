package logic

import (
	"github.com/goliatone/go-logic/runner"
)

// canceller turns the first cancelling action into a single cancellation.
// Before the intercept completes it reports cancelled; afterwards, while
// the process or a redispatch is still outstanding, dispCancelled.
type canceller struct {
	monitor           *Monitor
	action            *Action
	name              string
	control           *runner.Control
	interceptComplete bool
	disarmed          bool
	onFire            func()
}

func newCanceller(m *Monitor, action *Action, name string, onFire func()) *canceller {
	return &canceller{
		monitor: m,
		action:  action,
		name:    name,
		control: runner.NewControl(),
		onFire:  onFire,
	}
}

// Fire cancels the lifecycle on behalf of by. It reports whether this call
// caused the cancellation.
func (c *canceller) Fire(by *Action) bool {
	if c.disarmed {
		return false
	}
	cause := cloneLogicError(ErrCancelled, "", nil, map[string]any{
		"logic":     c.name,
		"action":    actionType(c.action),
		"cancelled": actionType(by),
	})
	if !c.control.Cancel(cause) {
		return false
	}

	op := OpCancelled
	if c.interceptComplete {
		op = OpDispCancelled
	}
	c.monitor.Publish(Event{Action: c.action, Name: c.name, Op: op})

	if c.onFire != nil {
		c.onFire()
	}
	return true
}

func (c *canceller) markInterceptComplete() {
	c.interceptComplete = true
}

// disarm stops any future cancellation; called when the lifecycle ends.
func (c *canceller) disarm() {
	c.disarmed = true
}

func (c *canceller) cancelled() bool {
	return c.control.Cancelled()
}

func (c *canceller) done() <-chan struct{} {
	return c.control.Done()
}
