package logic

import (
	"fmt"
)

// UnhandledLogicError is the action type dispatched when a logic fails and
// no FailType is configured.
const UnhandledLogicError = "UNHANDLED_LOGIC_ERROR"

// Action is the unit of work flowing through the engine. The engine tracks
// actions by pointer identity and never mutates a received action.
type Action struct {
	Type    string         `json:"type" yaml:"type"`
	Payload any            `json:"payload,omitempty" yaml:"payload,omitempty"`
	Error   bool           `json:"error,omitempty" yaml:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// NewAction builds an action of the given type with an optional payload.
func NewAction(actionType string, payload ...any) *Action {
	a := &Action{Type: actionType}
	if len(payload) > 0 {
		a.Payload = payload[0]
	}
	return a
}

// ErrorAction builds an action flagged as an error carrying err as payload.
func ErrorAction(actionType string, err error) *Action {
	return &Action{Type: actionType, Payload: err, Error: true}
}

func (a *Action) String() string {
	if a == nil {
		return "<nil>"
	}
	if a.Payload == nil {
		return a.Type
	}
	return fmt.Sprintf("%s(%v)", a.Type, a.Payload)
}

func actionType(a *Action) string {
	if a == nil {
		return ""
	}
	return a.Type
}
