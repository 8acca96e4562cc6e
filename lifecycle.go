package logic

import (
	"context"
	"strconv"

	"github.com/goliatone/go-logic/runner"
)

type decision struct {
	act   *Action
	allow bool
	opts  decisionOptions
}

// lifecycle is one (action, logic) run: intercept, optional process, end.
// All methods run on the engine serializer.
type lifecycle struct {
	id     string
	engine *Engine
	stage  *stage
	logic  *Logic
	name   string
	action *Action
	// forward passes an action to the next stage of the chain.
	forward func(*Action)
	deps    *Deps
	logger  Logger

	gate     *gate
	cancel   *canceller
	stopCtx  context.CancelCauseFunc
	watchdog *runner.Watchdog

	queue    []decision
	draining bool
	decided  bool

	closed     bool
	futureSent bool
}

func newLifecycle(s *stage, action *Action, forward func(*Action)) *lifecycle {
	e := s.engine
	lc := &lifecycle{
		id:      e.newID(),
		engine:  e,
		stage:   s,
		logic:   s.logic,
		name:    s.name,
		action:  action,
		forward: forward,
	}
	lc.logger = withLoggerFields(e.logger, map[string]any{
		"logic":        lc.name,
		"action_type":  action.Type,
		"lifecycle_id": lc.id,
	})

	ctx, stop := context.WithCancelCause(context.Background())
	lc.stopCtx = stop
	lc.cancel = newCanceller(e.monitor, action, lc.name, func() {
		stop(lc.cancel.control.CancelCause())
		// a continuation still waiting on the gate runs now with skip set
		if lc.gate != nil {
			lc.gate.stop(true)
		}
		lc.close()
	})

	host := e.host
	lc.deps = &Deps{
		Action:    action,
		Name:      lc.name,
		Values:    map[string]any{},
		Extra:     e.deps,
		Logger:    lc.logger,
		ctx:       ctx,
		cancelled: lc.cancel.done(),
		getState: func() any {
			if host == nil {
				return nil
			}
			return host.GetState()
		},
	}
	return lc
}

func (lc *lifecycle) start() {
	// the gate must observe this lifecycle's begin
	lc.gate = newGate(lc.engine.monitor, lc.action, lc.name, lc.engine.order)
	lc.watchdog = runner.NewWatchdog(lc.logic.WarnTimeout, lc.warnStalled)

	lc.engine.monitor.Publish(Event{Action: lc.action, Name: lc.name, Op: OpBegin})
	if lc.closed {
		return
	}

	switch {
	case lc.logic.Validate != nil:
		err := callSafely(func() error {
			return lc.logic.Validate(lc.deps, lc.decision(true), lc.decision(false))
		})
		lc.interceptDone(err)
	case lc.logic.Transform != nil:
		err := callSafely(func() error {
			return lc.logic.Transform(lc.deps, lc.decision(true))
		})
		lc.interceptDone(err)
	default:
		lc.push(decision{act: lc.action, allow: true})
	}
}

func (lc *lifecycle) decision(allow bool) Decision {
	return func(act *Action, opts ...DecisionOption) {
		d := decision{act: act, allow: allow}
		for _, opt := range opts {
			if opt != nil {
				opt(&d.opts)
			}
		}
		lc.engine.loop.run(func() {
			lc.push(d)
		})
	}
}

func (lc *lifecycle) push(d decision) {
	if lc.closed && !lc.decided {
		lc.logger.Debug("logic %s ended before deciding, dropping %s", lc.name, d.act)
		return
	}
	lc.queue = append(lc.queue, d)
	if lc.draining {
		return
	}

	lc.draining = true
	defer func() { lc.draining = false }()
	for len(lc.queue) > 0 {
		next := lc.queue[0]
		lc.queue = lc.queue[1:]
		lc.apply(next)
	}
}

func (lc *lifecycle) apply(d decision) {
	if lc.decided {
		lc.logger.Debug("logic %s already decided, absorbing %s", lc.name, d.act)
		return
	}
	if lc.closed {
		return
	}
	lc.decided = true

	shouldDispatch := false
	if d.act != nil {
		switch d.opts.mode {
		case DispatchAlways:
			shouldDispatch = true
		case DispatchAuto:
			shouldDispatch = d.act.Type != lc.action.Type
		}
	}

	monitor := lc.engine.monitor
	switch {
	case shouldDispatch:
		monitor.Publish(Event{
			Action:        lc.action,
			DispAction:    d.act,
			Name:          lc.name,
			ShouldProcess: boolPtr(d.allow),
			Op:            OpNextDisp,
		})
		lc.cancel.markInterceptComplete()
		lc.redispatch(d.act)
	case d.act != nil:
		monitor.Publish(Event{
			Action:        lc.action,
			NextAction:    d.act,
			Name:          lc.name,
			ShouldProcess: boolPtr(d.allow),
			Op:            OpNext,
		})
		lc.cancel.markInterceptComplete()
		lc.forward(d.act)
	default:
		monitor.Publish(Event{
			Action:        lc.action,
			Name:          lc.name,
			ShouldProcess: boolPtr(d.allow),
			Op:            OpFiltered,
		})
		lc.cancel.markInterceptComplete()
		if !d.allow || lc.logic.Process == nil {
			// nothing left to wait for
			lc.gate.stop(true)
		}
	}

	if lc.closed {
		return
	}

	if d.allow && lc.logic.Process != nil {
		act := d.act
		if act == nil {
			act = lc.action
		}
		lc.gate.executeWhenReady(func(skip bool, err error) {
			lc.runProcess(act, skip, err)
		})
		return
	}

	lc.gate.executeWhenReady(func(bool, error) {
		lc.close()
	})
}

// interceptDone handles the return of a validate or transform call. An
// error only matters when no decision has been made yet.
func (lc *lifecycle) interceptDone(err error) {
	if err == nil {
		return
	}
	if lc.decided || lc.closed {
		lc.logger.Warn("logic %s intercept failed after deciding: %v", lc.name, err)
		return
	}
	lc.decided = true
	lc.queue = nil

	lc.logger.Error("logic %s intercept failed: %v", lc.name, err)
	lc.engine.monitor.Publish(Event{
		Action: lc.action,
		Name:   lc.name,
		Err:    errorMessage(err),
		Op:     OpDispatchError,
	})
	lc.cancel.markInterceptComplete()
	lc.storeDispatch(lc.failureAction(err))
	lc.close()
}

// redispatch sends act back through the host, marked so this stage does not
// intercept it again.
func (lc *lifecycle) redispatch(act *Action) {
	e := lc.engine
	e.markIntercepted(act, lc.stage)
	defer e.unmarkIntercepted(act, lc.stage)
	lc.storeDispatch(act)
}

func (lc *lifecycle) storeDispatch(act *Action) {
	lc.engine.monitor.Publish(Event{Action: lc.action, DispAction: act, Op: OpDispatch})
	if err := lc.engine.hostDispatch(act); err != nil {
		lc.logger.Error("logic %s dispatch of %s failed: %v", lc.name, act.Type, err)
		lc.engine.monitor.Publish(Event{
			Action:     lc.action,
			DispAction: act,
			Name:       lc.name,
			Err:        errorMessage(err),
			Op:         OpNextError,
		})
	}
}

// close ends the lifecycle exactly once.
func (lc *lifecycle) close() {
	if lc.closed {
		return
	}
	lc.closed = true
	lc.watchdog.Stop()
	lc.cancel.disarm()
	lc.stage.untrack(lc)

	lc.engine.monitor.Publish(Event{Action: lc.action, Name: lc.name, Op: OpEnd})

	lc.gate.dispose()
	lc.stopCtx(nil)
}

func (lc *lifecycle) warnStalled() {
	secs := strconv.FormatFloat(lc.logic.WarnTimeout.Seconds(), 'f', -1, 64)
	lc.logger.Warn(
		"warning: logic (%s) is still running after %ss, forget to call done()? For non-ending logic, set warnTimeout: 0",
		lc.name, secs,
	)
}
