package logic

import (
	"fmt"
)

// runProcess invokes the process hook once the gate lets this logic run.
func (lc *lifecycle) runProcess(act *Action, skip bool, err error) {
	if lc.closed {
		return
	}
	if err != nil {
		lc.logger.Debug("logic %s gate failed: %v", lc.name, err)
	}
	if skip || lc.cancel.cancelled() {
		lc.close()
		return
	}

	lc.deps.Action = act

	var ret any
	perr := callSafely(func() error {
		var callErr error
		ret, callErr = lc.logic.Process(lc.deps, lc.dispatchFunc(), lc.doneFunc())
		return callErr
	})

	if perr != nil {
		lc.processFailed(perr)
		return
	}

	if lc.logic.ProcessOptions.DispatchReturn {
		if ret != nil && !lc.closed {
			lc.dispatch(ret)
		}
		lc.close()
		return
	}

	if !lc.closed && !lc.cancel.cancelled() && !lc.futureSent {
		lc.futureSent = true
		lc.engine.monitor.Publish(Event{Action: lc.action, Name: lc.name, Op: OpDispFuture})
	}
}

func (lc *lifecycle) processFailed(err error) {
	lc.logger.Error("unhandled exception in logic named: %s: %v", lc.name, err)
	lc.engine.monitor.Publish(Event{
		Action: lc.action,
		Name:   lc.name,
		Err:    errorMessage(err),
		Op:     OpNextError,
	})
	if lc.closed || lc.cancel.cancelled() {
		return
	}
	lc.storeDispatch(lc.failureAction(err))
	lc.close()
}

func (lc *lifecycle) dispatchFunc() DispatchFunc {
	return func(v any) {
		lc.engine.loop.run(func() {
			lc.dispatch(v)
		})
	}
}

func (lc *lifecycle) doneFunc() func() {
	return func() {
		lc.engine.loop.run(lc.close)
	}
}

// dispatch emits v on behalf of the process. Values arriving after the
// lifecycle ended or was cancelled are dropped.
func (lc *lifecycle) dispatch(v any) {
	if lc.closed || lc.cancel.cancelled() {
		lc.logger.Debug("logic %s dropped a dispatch after it ended", lc.name)
		return
	}
	act := lc.toAction(v)
	if act == nil {
		return
	}
	lc.storeDispatch(act)
	if !lc.logic.ProcessOptions.DispatchMultiple {
		lc.close()
	}
}

func (lc *lifecycle) toAction(v any) *Action {
	opts := lc.logic.ProcessOptions
	switch x := v.(type) {
	case nil:
		return nil
	case *Action:
		return x
	case Action:
		return &x
	case error:
		return lc.failureAction(x)
	default:
		if opts.SuccessType != "" {
			return &Action{Type: opts.SuccessType, Payload: v}
		}
		err := cloneLogicError(ErrUnhandled, fmt.Sprintf("logic %s dispatched a %T without a success type", lc.name, v), nil, map[string]any{
			"logic": lc.name,
			"value": v,
		})
		return ErrorAction(UnhandledLogicError, err)
	}
}

func (lc *lifecycle) failureAction(err error) *Action {
	failType := lc.logic.ProcessOptions.FailType
	if failType == "" {
		failType = UnhandledLogicError
	}
	return ErrorAction(failType, err)
}
