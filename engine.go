package logic

import (
	"context"

	"github.com/google/uuid"
)

// Next passes an action to the rest of the host pipeline.
type Next func(act *Action) error

// Host is the action bus the engine is attached to.
type Host interface {
	GetState() any
	Dispatch(act *Action) error
}

// Middleware attaches the engine to a host pipeline, redux style.
type Middleware func(host Host) func(next Next) Next

// Engine runs registered logics over every action passing through its
// middleware and reports each transition on its monitor.
type Engine struct {
	loop    serializer
	monitor *Monitor
	logger  Logger
	deps    map[string]any
	order   ProcessOrder
	newID   func() string

	host   Host
	next   Next
	closed bool

	stages []*stage
	names  map[string]struct{}
	logics map[*Logic]struct{}

	// intercepted marks redispatched actions so the stage that produced
	// them lets them through untouched.
	intercepted map[*Action]map[*stage]int

	pending int
	waiters []func()
}

// New creates an engine running logics in the given order.
func New(logics []*Logic, opts ...Option) (*Engine, error) {
	e := &Engine{
		order:       ProcessOrderReverse,
		newID:       uuid.NewString,
		names:       map[string]struct{}{},
		logics:      map[*Logic]struct{}{},
		intercepted: map[*Action]map[*stage]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = normalizeLogger(e.logger)
	e.monitor = NewMonitor(e.logger)
	e.monitor.observe(e.countPending, nil)

	if err := e.AddLogic(logics...); err != nil {
		return nil, err
	}
	return e, nil
}

// AddLogic appends logics to the end of the chain. Nothing is added if any
// of them is invalid or already registered.
func (e *Engine) AddLogic(logics ...*Logic) error {
	var err error
	e.loop.run(func() {
		err = e.addLogic(logics)
	})
	return err
}

func (e *Engine) addLogic(logics []*Logic) error {
	names := make(map[string]struct{}, len(logics))
	added := make([]*stage, 0, len(logics))

	for i, l := range logics {
		if err := l.check(); err != nil {
			return err
		}
		name := l.Name
		if name == "" {
			name = generatedName(l.Type, len(e.stages)+i)
		}
		if _, ok := e.logics[l]; ok {
			return cloneLogicError(ErrDuplicateLogic, "", nil, map[string]any{"logic": name})
		}
		for _, s := range added {
			if s.logic == l {
				return cloneLogicError(ErrDuplicateLogic, "", nil, map[string]any{"logic": name})
			}
		}
		if _, ok := e.names[name]; ok {
			return cloneLogicError(ErrDuplicateLogic, "logic name already registered: "+name, nil, map[string]any{"logic": name})
		}
		if _, ok := names[name]; ok {
			return cloneLogicError(ErrDuplicateLogic, "logic name already registered: "+name, nil, map[string]any{"logic": name})
		}
		names[name] = struct{}{}
		added = append(added, newStage(e, l, name))
	}

	stages := make([]*stage, 0, len(e.stages)+len(added))
	stages = append(stages, e.stages...)
	for _, s := range added {
		stages = append(stages, s)
		e.names[s.name] = struct{}{}
		e.logics[s.logic] = struct{}{}
	}
	e.stages = stages
	return nil
}

// Logics returns the logic names in chain order.
func (e *Engine) Logics() []string {
	var out []string
	e.loop.run(func() {
		out = make([]string, 0, len(e.stages))
		for _, s := range e.stages {
			out = append(out, s.name)
		}
	})
	return out
}

// Middleware returns the function that plugs the engine into a host.
func (e *Engine) Middleware() Middleware {
	return func(host Host) func(next Next) Next {
		e.loop.run(func() {
			e.host = host
		})
		return func(next Next) Next {
			e.loop.run(func() {
				e.next = next
			})
			return e.handle
		}
	}
}

// Monitor exposes the lifecycle event stream.
func (e *Engine) Monitor() Stream {
	return e.monitor
}

// WhenComplete calls fn once no lifecycle is in flight. If none is, fn runs
// right away. Each call gets its own notification.
func (e *Engine) WhenComplete(fn func()) {
	if fn == nil {
		return
	}
	e.loop.run(func() {
		if e.pending <= 0 {
			fn()
			return
		}
		e.waiters = append(e.waiters, fn)
	})
}

// Wait blocks until no lifecycle is in flight or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	e.WhenComplete(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of outstanding lifecycle steps.
func (e *Engine) Pending() int {
	var n int
	e.loop.run(func() {
		n = e.pending
	})
	return n
}

// Close detaches the engine. Running lifecycles end without further events
// and later actions pass straight through to the host. Nothing is in flight
// afterwards, so pending WhenComplete callbacks and Wait calls are released.
func (e *Engine) Close() {
	e.loop.run(func() {
		if e.closed {
			return
		}
		e.closed = true
		e.monitor.Close()
		for _, s := range e.stages {
			s.shutdown()
		}
		e.pending = 0
		waiters := e.waiters
		e.waiters = nil
		for _, fn := range waiters {
			fn()
		}
	})
}

func (e *Engine) handle(act *Action) error {
	if act == nil {
		return cloneLogicError(ErrNilAction, "", nil, nil)
	}

	var err error
	e.loop.run(func() {
		if e.next == nil {
			err = cloneLogicError(ErrHostUnbound, "", nil, map[string]any{"action": act.Type})
			return
		}
		if e.closed {
			err = callSafely(func() error { return e.next(act) })
			return
		}
		e.monitor.Publish(Event{Action: act, Op: OpTop})
		e.flow(e.stages, 0, act)
	})
	return err
}

func (e *Engine) flow(stages []*stage, i int, act *Action) {
	if i >= len(stages) {
		e.bottom(act)
		return
	}
	stages[i].handle(act, func(next *Action) {
		e.flow(stages, i+1, next)
	})
}

// bottom hands act to the host. Work unblocked by the bottom event waits
// until the host has applied it.
func (e *Engine) bottom(act *Action) {
	resume := e.monitor.hold(Event{NextAction: act, Op: OpBottom})
	defer resume()

	if err := callSafely(func() error { return e.next(act) }); err != nil {
		e.logger.Error("next(%s) failed: %v", act.Type, err)
		e.monitor.Publish(Event{NextAction: act, Err: errorMessage(err), Op: OpNextError})
	}
}

func (e *Engine) hostDispatch(act *Action) error {
	if e.host == nil {
		return cloneLogicError(ErrHostUnbound, "", nil, map[string]any{"action": act.Type})
	}
	return callSafely(func() error { return e.host.Dispatch(act) })
}

func (e *Engine) markIntercepted(act *Action, s *stage) {
	marks := e.intercepted[act]
	if marks == nil {
		marks = map[*stage]int{}
		e.intercepted[act] = marks
	}
	marks[s]++
}

func (e *Engine) unmarkIntercepted(act *Action, s *stage) {
	marks := e.intercepted[act]
	if marks == nil {
		return
	}
	marks[s]--
	if marks[s] <= 0 {
		delete(marks, s)
	}
	if len(marks) == 0 {
		delete(e.intercepted, act)
	}
}

func (e *Engine) interceptedBy(act *Action, s *stage) bool {
	return e.intercepted[act][s] > 0
}

// countPending folds the global in-flight count used by WhenComplete.
func (e *Engine) countPending(evt Event) func() {
	switch evt.Op {
	case OpTop, OpBegin:
		e.pending++
		return nil
	case OpEnd, OpBottom, OpNextDisp, OpFiltered, OpDispatchError, OpCancelled:
		e.pending--
	default:
		return nil
	}
	if e.pending > 0 || len(e.waiters) == 0 {
		return nil
	}
	waiters := e.waiters
	e.waiters = nil
	return func() {
		for _, fn := range waiters {
			fn()
		}
	}
}
