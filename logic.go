package logic

import (
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
)

// DispatchMode controls whether an allow/reject/next decision redispatches
// its action through the host instead of passing it down the chain.
type DispatchMode int

const (
	// DispatchAuto redispatches when the decided action changed type.
	DispatchAuto DispatchMode = iota
	DispatchAlways
	DispatchNever
)

type decisionOptions struct {
	mode DispatchMode
}

// DecisionOption tunes a single allow/reject/next call.
type DecisionOption func(*decisionOptions)

// UseDispatch overrides the default DispatchAuto behaviour.
func UseDispatch(mode DispatchMode) DecisionOption {
	return func(o *decisionOptions) {
		o.mode = mode
	}
}

// Decision is the allow, reject or next callback handed to intercepts.
// Passing a nil action filters the original action out.
type Decision func(act *Action, opts ...DecisionOption)

// DispatchFunc dispatches an *Action, an error (mapped to FailType), or any
// other value (mapped to SuccessType).
type DispatchFunc func(v any)

// ValidateFunc decides whether an action proceeds. It may call allow or
// reject synchronously or later from another goroutine. Returning an error
// before deciding ends the lifecycle with a dispatchError.
type ValidateFunc func(deps *Deps, allow, reject Decision) error

// TransformFunc rewrites an action; next behaves like allow.
type TransformFunc func(deps *Deps, next Decision) error

// ProcessFunc performs side effects for an admitted action. The returned
// value is dispatched when ProcessOptions.DispatchReturn is set; a returned
// error is always dispatched as a failure.
type ProcessFunc func(deps *Deps, dispatch DispatchFunc, done func()) (any, error)

// ProcessOptions configures the process phase.
type ProcessOptions struct {
	DispatchReturn   bool   `json:"dispatch_return,omitempty" yaml:"dispatch_return,omitempty"`
	DispatchMultiple bool   `json:"dispatch_multiple,omitempty" yaml:"dispatch_multiple,omitempty"`
	SuccessType      string `json:"success_type,omitempty" yaml:"success_type,omitempty"`
	FailType         string `json:"fail_type,omitempty" yaml:"fail_type,omitempty"`
}

// Logic declares how the engine treats actions matching Type.
type Logic struct {
	Name       string
	Type       TypeMatcher
	CancelType TypeMatcher
	Latest     bool
	Debounce   time.Duration
	Throttle   time.Duration

	Validate  ValidateFunc
	Transform TransformFunc
	Process   ProcessFunc

	ProcessOptions ProcessOptions

	// WarnTimeout logs a warning if the logic has not ended after this long.
	// Zero disables the warning.
	WarnTimeout time.Duration
}

func (l *Logic) check() error {
	if l == nil {
		return errors.New("logic cannot be nil", errors.CategoryBadInput).
			WithTextCode(ErrCodeInvalidLogic)
	}

	meta := map[string]any{"logic": l.Name}
	switch {
	case l.Type == nil:
		return cloneLogicError(ErrInvalidLogic, "logic type is required", nil, meta)
	case l.Validate != nil && l.Transform != nil:
		return cloneLogicError(ErrInvalidLogic, "logic cannot define both validate and transform", nil, meta)
	case l.Debounce < 0 || l.Throttle < 0 || l.WarnTimeout < 0:
		return cloneLogicError(ErrInvalidLogic, "logic durations cannot be negative", nil, meta)
	case l.Process == nil && (l.ProcessOptions.DispatchReturn || l.ProcessOptions.DispatchMultiple ||
		l.ProcessOptions.SuccessType != "" || l.ProcessOptions.FailType != ""):
		return cloneLogicError(ErrInvalidLogic, "process options require a process function", nil, meta)
	}
	return nil
}

func generatedName(m TypeMatcher, index int) string {
	return fmt.Sprintf("L(%s)-%d", m.String(), index)
}
