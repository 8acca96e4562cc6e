package logic

import (
	"github.com/goliatone/go-logic/runner"
)

const (
	reasonDebounce = "debounce"
	reasonThrottle = "throttle"
)

type heldAction struct {
	action  *Action
	forward func(*Action)
}

// stage is one logic's position in the chain. It routes matching actions
// into new lifecycles and passes the rest along.
type stage struct {
	engine    *Engine
	logic     *Logic
	name      string
	inflight  []*lifecycle
	debouncer *runner.Debouncer[heldAction]
	throttler *runner.Throttler
}

func newStage(e *Engine, l *Logic, name string) *stage {
	s := &stage{engine: e, logic: l, name: name}
	if l.Throttle > 0 {
		s.throttler = runner.NewThrottler(l.Throttle)
	}
	if l.Debounce > 0 {
		s.debouncer = runner.NewDebouncer(l.Debounce, func(h heldAction) {
			e.loop.run(func() {
				if e.closed {
					return
				}
				s.begin(h.action, h.forward)
			})
		})
	}
	return s
}

func (s *stage) handle(act *Action, forward func(*Action)) {
	running := append([]*lifecycle(nil), s.inflight...)

	if MatchesType(s.logic.Type, act.Type) && !s.engine.interceptedBy(act, s) {
		s.admit(act, forward)
	} else {
		forward(act)
	}

	if MatchesType(s.logic.CancelType, act.Type) {
		for _, lc := range running {
			lc.cancel.Fire(act)
		}
	}
}

func (s *stage) admit(act *Action, forward func(*Action)) {
	if s.throttler != nil && !s.throttler.Allow() {
		s.engine.monitor.Publish(Event{Action: act, Name: s.name, Reason: reasonThrottle, Op: OpFiltered})
		return
	}
	if s.debouncer != nil {
		if prev, replaced := s.debouncer.Offer(heldAction{action: act, forward: forward}); replaced {
			s.engine.monitor.Publish(Event{Action: prev.action, Name: s.name, Reason: reasonDebounce, Op: OpFiltered})
		}
		return
	}
	s.begin(act, forward)
}

func (s *stage) begin(act *Action, forward func(*Action)) {
	if s.logic.Latest {
		for _, lc := range append([]*lifecycle(nil), s.inflight...) {
			lc.cancel.Fire(act)
		}
	}
	lc := newLifecycle(s, act, forward)
	s.inflight = append(s.inflight, lc)
	lc.start()
}

func (s *stage) untrack(lc *lifecycle) {
	for i, x := range s.inflight {
		if x == lc {
			s.inflight = append(s.inflight[:i:i], s.inflight[i+1:]...)
			return
		}
	}
}

// shutdown drops any held debounced action and ends every running lifecycle.
func (s *stage) shutdown() {
	if s.debouncer != nil {
		s.debouncer.Stop()
	}
	for _, lc := range append([]*lifecycle(nil), s.inflight...) {
		lc.close()
	}
}
