package logic

import (
	"strconv"
	"strings"
	"sync"
)

// Op names a lifecycle transition published on the monitor stream.
type Op string

const (
	OpTop           Op = "top"
	OpBegin         Op = "begin"
	OpNext          Op = "next"
	OpNextDisp      Op = "nextDisp"
	OpFiltered      Op = "filtered"
	OpBottom        Op = "bottom"
	OpDispatch      Op = "dispatch"
	OpDispatchError Op = "dispatchError"
	OpNextError     Op = "nextError"
	OpDispFuture    Op = "dispFuture"
	OpDispCancelled Op = "dispCancelled"
	OpCancelled     Op = "cancelled"
	OpEnd           Op = "end"
)

// Event is an immutable record of one lifecycle transition. Which fields
// are set depends on Op.
type Event struct {
	Action        *Action `json:"action,omitempty"`
	Name          string  `json:"name,omitempty"`
	NextAction    *Action `json:"nextAction,omitempty"`
	DispAction    *Action `json:"dispAction,omitempty"`
	Op            Op      `json:"op"`
	ShouldProcess *bool   `json:"shouldProcess,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	Err           string  `json:"err,omitempty"`
}

// String renders the event on one line, e.g.
// "next name=L(FOO)-0 action=FOO nextAction=FOO shouldProcess=true".
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(string(e.Op))
	field := func(k, v string) {
		if v == "" {
			return
		}
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	field("name", e.Name)
	field("action", actionType(e.Action))
	field("nextAction", actionType(e.NextAction))
	field("dispAction", actionType(e.DispAction))
	if e.ShouldProcess != nil {
		field("shouldProcess", strconv.FormatBool(*e.ShouldProcess))
	}
	field("reason", e.Reason)
	if e.Err != "" {
		field("err", strconv.Quote(e.Err))
	}
	return b.String()
}

// Subscription detaches a listener.
type Subscription interface {
	Unsubscribe()
}

// Stream is the read-only view of the monitor.
type Stream interface {
	Subscribe(fn func(Event)) Subscription
}

// Monitor is the single ordered stream of lifecycle events.
//
// Publish never blocks and never fails. Observers (pending-count trackers,
// completion accounting) fold each event first and may hand back work to run
// once the event has reached every subscriber; that work may publish again.
// A panicking subscriber is logged and skipped.
type Monitor struct {
	mu        sync.Mutex
	nextID    uint64
	subs      []*monitorSub
	observers []*monitorObserver
	closed    bool
	logger    Logger
}

type monitorSub struct {
	id  uint64
	m   *Monitor
	fn  func(Event)
	obs bool
}

type monitorObserver struct {
	monitorSub
	fold func(Event) func()
	fail func(error)
}

// NewMonitor creates a monitor that reports subscriber failures to logger.
func NewMonitor(logger Logger) *Monitor {
	return &Monitor{logger: normalizeLogger(logger)}
}

// Subscribe registers fn to receive every event published from now on.
func (m *Monitor) Subscribe(fn func(Event)) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sub := &monitorSub{id: m.nextID, m: m, fn: fn}
	if m.closed {
		return sub
	}
	subs := make([]*monitorSub, 0, len(m.subs)+1)
	subs = append(subs, m.subs...)
	m.subs = append(subs, sub)
	return sub
}

// observe registers an internal observer. fail is invoked once if the
// monitor closes while the observer is attached.
func (m *Monitor) observe(fold func(Event) func(), fail func(error)) Subscription {
	m.mu.Lock()
	m.nextID++
	o := &monitorObserver{
		monitorSub: monitorSub{id: m.nextID, m: m, obs: true},
		fold:       fold,
		fail:       fail,
	}
	if m.closed {
		m.mu.Unlock()
		if fail != nil {
			fail(ErrMonitorClosed)
		}
		return &o.monitorSub
	}
	observers := make([]*monitorObserver, 0, len(m.observers)+1)
	observers = append(observers, m.observers...)
	m.observers = append(observers, o)
	m.mu.Unlock()
	return &o.monitorSub
}

func (s *monitorSub) Unsubscribe() {
	if s == nil || s.m == nil {
		return
	}
	s.m.remove(s.id, s.obs)
}

func (m *Monitor) remove(id uint64, obs bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obs {
		next := make([]*monitorObserver, 0, len(m.observers))
		for _, o := range m.observers {
			if o.id != id {
				next = append(next, o)
			}
		}
		m.observers = next
		return
	}

	next := make([]*monitorSub, 0, len(m.subs))
	for _, s := range m.subs {
		if s.id != id {
			next = append(next, s)
		}
	}
	m.subs = next
}

// Publish delivers evt to observers, then subscribers, then runs any work the
// observers deferred.
func (m *Monitor) Publish(evt Event) {
	m.hold(evt)()
}

// hold delivers evt like Publish but hands the deferred observer work back to
// the caller instead of running it.
func (m *Monitor) hold(evt Event) func() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	observers := m.observers
	subs := m.subs
	m.mu.Unlock()

	var deferred []func()
	for _, o := range observers {
		if run := m.fold(o, evt); run != nil {
			deferred = append(deferred, run)
		}
	}

	for _, s := range subs {
		m.deliver(s, evt)
	}

	return func() {
		for _, run := range deferred {
			run()
		}
	}
}

func (m *Monitor) fold(o *monitorObserver, evt Event) (run func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor observer panicked on %s: %v", evt.Op, r)
			run = nil
		}
	}()
	return o.fold(evt)
}

func (m *Monitor) deliver(s *monitorSub, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor subscriber panicked on %s: %v", evt.Op, r)
		}
	}()
	s.fn(evt)
}

// Close stops delivery and fails every attached observer with
// ErrMonitorClosed. Later publishes are dropped.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	observers := m.observers
	m.observers = nil
	m.subs = nil
	m.mu.Unlock()

	for _, o := range observers {
		if o.fail != nil {
			o.fail(ErrMonitorClosed)
		}
	}
}

func boolPtr(v bool) *bool { return &v }
