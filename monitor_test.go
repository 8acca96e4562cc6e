package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorOrdersObserversSubscribersAndDeferredWork(t *testing.T) {
	m := NewMonitor(newCaptureLogger())
	var trace []string

	m.observe(func(evt Event) func() {
		trace = append(trace, "fold "+string(evt.Op))
		if evt.Op != OpTop {
			return nil
		}
		return func() {
			trace = append(trace, "deferred")
			m.Publish(Event{Op: OpEnd})
		}
	}, nil)
	m.Subscribe(func(evt Event) {
		trace = append(trace, "sub "+string(evt.Op))
	})

	m.Publish(Event{Op: OpTop})

	assert.Equal(t, []string{
		"fold top",
		"sub top",
		"deferred",
		"fold end",
		"sub end",
	}, trace)
}

func TestMonitorIsolatesPanickingSubscribers(t *testing.T) {
	logger := newCaptureLogger()
	m := NewMonitor(logger)
	var got []Op

	m.Subscribe(func(Event) { panic("subscriber failure") })
	m.Subscribe(func(evt Event) { got = append(got, evt.Op) })
	m.observe(func(Event) func() { panic("observer failure") }, nil)

	assert.NotPanics(t, func() {
		m.Publish(Event{Op: OpTop})
		m.Publish(Event{Op: OpBottom})
	})
	assert.Equal(t, []Op{OpTop, OpBottom}, got)
	assert.True(t, logger.Contains("error", "subscriber failure"))
	assert.True(t, logger.Contains("error", "observer failure"))
}

func TestMonitorUnsubscribe(t *testing.T) {
	m := NewMonitor(newCaptureLogger())
	count := 0
	sub := m.Subscribe(func(Event) { count++ })

	m.Publish(Event{Op: OpTop})
	sub.Unsubscribe()
	sub.Unsubscribe()
	m.Publish(Event{Op: OpTop})

	assert.Equal(t, 1, count)
}

func TestMonitorSubscribeDuringPublish(t *testing.T) {
	m := NewMonitor(newCaptureLogger())
	var late []Op
	m.Subscribe(func(evt Event) {
		if evt.Op == OpTop {
			m.Subscribe(func(e Event) { late = append(late, e.Op) })
		}
	})

	m.Publish(Event{Op: OpTop})
	m.Publish(Event{Op: OpEnd})

	assert.Equal(t, []Op{OpEnd}, late)
}

func TestMonitorCloseFailsObservers(t *testing.T) {
	m := NewMonitor(newCaptureLogger())
	var failed error
	m.observe(func(Event) func() { return nil }, func(err error) { failed = err })
	count := 0
	m.Subscribe(func(Event) { count++ })

	m.Close()
	m.Close()
	m.Publish(Event{Op: OpTop})

	require.Error(t, failed)
	assert.Equal(t, ErrCodeMonitorClosed, ErrorCode(failed))
	assert.Equal(t, 0, count)

	var lateErr error
	m.observe(func(Event) func() { return nil }, func(err error) { lateErr = err })
	assert.Equal(t, ErrCodeMonitorClosed, ErrorCode(lateErr))
}

func TestEventString(t *testing.T) {
	foo := NewAction("FOO")
	assert.Equal(t, "top action=FOO", Event{Action: foo, Op: OpTop}.String())
	assert.Equal(t,
		"nextDisp name=L action=FOO dispAction=NOOP shouldProcess=false",
		Event{Action: foo, DispAction: NewAction("NOOP"), Name: "L", ShouldProcess: boolPtr(false), Op: OpNextDisp}.String(),
	)
	assert.Equal(t,
		`nextError nextAction=FOO err="reducer \"x\" failed"`,
		Event{NextAction: foo, Err: `reducer "x" failed`, Op: OpNextError}.String(),
	)
	assert.Equal(t,
		"filtered name=T action=FOO reason=throttle",
		Event{Action: foo, Name: "T", Reason: "throttle", Op: OpFiltered}.String(),
	)
}
