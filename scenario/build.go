package scenario

import (
	stderrors "errors"
	"strings"
	"time"

	logic "github.com/goliatone/go-logic"
	"github.com/goliatone/go-logic/store"
)

var processOrders = map[string]logic.ProcessOrder{
	"":        logic.ProcessOrderReverse,
	"reverse": logic.ProcessOrderReverse,
	"settled": logic.ProcessOrderSettled,
	"none":    logic.ProcessOrderNone,
}

var redispatchModes = map[string]logic.DispatchMode{
	"":       logic.DispatchAuto,
	"auto":   logic.DispatchAuto,
	"always": logic.DispatchAlways,
	"never":  logic.DispatchNever,
}

// DeltaReducer adds the configured delta for each action type to the state.
func (s *Scenario) DeltaReducer() store.Reducer[int] {
	deltas := make(map[string]int, len(s.Reducer))
	for k, v := range s.Reducer {
		deltas[k] = v
	}
	return func(state int, act *logic.Action) int {
		return state + deltas[act.Type]
	}
}

// Order returns the configured process order.
func (s *Scenario) Order() logic.ProcessOrder {
	return processOrders[s.ProcessOrder]
}

// Build turns the scripted logics into engine logic.
func (s *Scenario) Build() []*logic.Logic {
	out := make([]*logic.Logic, 0, len(s.Logics))
	for _, spec := range s.Logics {
		out = append(out, spec.build())
	}
	return out
}

func (l LogicSpec) build() *logic.Logic {
	lg := &logic.Logic{
		Name:        l.Name,
		Type:        matcher(l.Type, l.Types),
		Latest:      l.Latest,
		Debounce:    l.Debounce,
		Throttle:    l.Throttle,
		WarnTimeout: l.WarnTimeout,
		ProcessOptions: logic.ProcessOptions{
			DispatchReturn:   l.Options.DispatchReturn,
			DispatchMultiple: l.Options.DispatchMultiple,
			SuccessType:      l.Options.SuccessType,
			FailType:         l.Options.FailType,
		},
	}
	if l.CancelType != "" {
		lg.CancelType = matcher(l.CancelType, nil)
	}
	if l.Validate != nil {
		lg.Validate = l.Validate.validate()
	}
	if l.Transform != nil {
		lg.Transform = l.Transform.transform()
	}
	if l.Process != nil {
		lg.Process = l.Process.process()
	}
	return lg
}

func matcher(pattern string, types []string) logic.TypeMatcher {
	switch {
	case len(types) > 0:
		return logic.OneOf(types...)
	case pattern == logic.Wildcard:
		return logic.Any
	case strings.ContainsAny(pattern, "*#+"):
		return logic.Topic(pattern, ".")
	default:
		return logic.Type(pattern)
	}
}

func stateOf(deps *logic.Deps) int {
	n, _ := deps.GetState().(int)
	return n
}

func (ic *InterceptSpec) options() []logic.DecisionOption {
	if ic.Redispatch == "" {
		return nil
	}
	return []logic.DecisionOption{logic.UseDispatch(redispatchModes[ic.Redispatch])}
}

// later runs fn after the intercept delay unless the lifecycle ends first.
func later(deps *logic.Deps, delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}
	ctx := deps.Context()
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			fn()
		case <-ctx.Done():
		}
	}()
}

func (ic *InterceptSpec) validate() logic.ValidateFunc {
	return func(deps *logic.Deps, allow, reject logic.Decision) error {
		if ic.Fail != "" {
			return stderrors.New(ic.Fail)
		}
		if ic.Stall {
			return nil
		}
		act := deps.Action
		later(deps, ic.Delay, func() {
			if !ic.When.Holds(stateOf(deps)) {
				if ic.RejectType == "" {
					reject(nil)
					return
				}
				reject(logic.NewAction(ic.RejectType, act.Payload), ic.options()...)
				return
			}
			if ic.Rename != "" {
				allow(logic.NewAction(ic.Rename, act.Payload), ic.options()...)
				return
			}
			allow(act, ic.options()...)
		})
		return nil
	}
}

func (ic *InterceptSpec) transform() logic.TransformFunc {
	return func(deps *logic.Deps, next logic.Decision) error {
		if ic.Fail != "" {
			return stderrors.New(ic.Fail)
		}
		if ic.Stall {
			return nil
		}
		act := deps.Action
		later(deps, ic.Delay, func() {
			if ic.Rename != "" && ic.When.Holds(stateOf(deps)) {
				next(logic.NewAction(ic.Rename, act.Payload), ic.options()...)
				return
			}
			next(act, ic.options()...)
		})
		return nil
	}
}

func (ps *ProcessSpec) process() logic.ProcessFunc {
	return func(deps *logic.Deps, dispatch logic.DispatchFunc, done func()) (any, error) {
		if ps.Delay > 0 {
			later(deps, ps.Delay, func() {
				for _, t := range ps.Dispatch {
					dispatch(logic.NewAction(t))
				}
				if ps.Fail != "" {
					dispatch(stderrors.New(ps.Fail))
				}
				if ps.Return != "" {
					dispatch(logic.NewAction(ps.Return))
				}
				if !ps.Stall {
					done()
				}
			})
			return nil, nil
		}

		for _, t := range ps.Dispatch {
			dispatch(logic.NewAction(t))
		}
		switch {
		case ps.Fail != "":
			return nil, stderrors.New(ps.Fail)
		case ps.Return != "":
			return logic.NewAction(ps.Return), nil
		}
		if !ps.Stall {
			done()
		}
		return nil, nil
	}
}
