// Package scenario loads YAML descriptions of a host store, scripted logic
// and an action script, and runs them against the engine.
package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

const (
	ErrCodeInvalidScenario = "SCENARIO_INVALID"
	ErrCodeParseScenario   = "SCENARIO_PARSE"
)

// Scenario is one runnable script.
type Scenario struct {
	Name         string         `yaml:"name" json:"name"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	InitialState int            `yaml:"initial_state" json:"initial_state"`
	Reducer      map[string]int `yaml:"reducer,omitempty" json:"reducer,omitempty"`
	// ProcessOrder is one of reverse, settled or none.
	ProcessOrder string       `yaml:"process_order,omitempty" json:"process_order,omitempty"`
	Logics       []LogicSpec  `yaml:"logics" json:"logics"`
	Actions      []ActionSpec `yaml:"actions" json:"actions"`
}

// LogicSpec describes one scripted logic.
type LogicSpec struct {
	Name string `yaml:"name,omitempty"`
	// Type is an action type, "*", or a dotted topic pattern using * and #.
	Type        string        `yaml:"type,omitempty"`
	Types       []string      `yaml:"types,omitempty"`
	CancelType  string        `yaml:"cancel_type,omitempty"`
	Latest      bool          `yaml:"latest,omitempty"`
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	Throttle    time.Duration `yaml:"throttle,omitempty"`
	WarnTimeout time.Duration `yaml:"warn_timeout,omitempty"`

	Validate  *InterceptSpec `yaml:"validate,omitempty"`
	Transform *InterceptSpec `yaml:"transform,omitempty"`
	Process   *ProcessSpec   `yaml:"process,omitempty"`

	Options ProcessOptions `yaml:"options,omitempty"`
}

// ProcessOptions mirrors logic.ProcessOptions in YAML form.
type ProcessOptions struct {
	DispatchReturn   bool   `yaml:"dispatch_return,omitempty"`
	DispatchMultiple bool   `yaml:"dispatch_multiple,omitempty"`
	SuccessType      string `yaml:"success_type,omitempty"`
	FailType         string `yaml:"fail_type,omitempty"`
}

// Condition is checked against the host state. Unset bounds always hold.
type Condition struct {
	StateGT *int `yaml:"state_gt,omitempty"`
	StateLT *int `yaml:"state_lt,omitempty"`
	StateEQ *int `yaml:"state_eq,omitempty"`
}

// Holds reports whether state satisfies every bound.
func (c *Condition) Holds(state int) bool {
	if c == nil {
		return true
	}
	if c.StateGT != nil && !(state > *c.StateGT) {
		return false
	}
	if c.StateLT != nil && !(state < *c.StateLT) {
		return false
	}
	if c.StateEQ != nil && state != *c.StateEQ {
		return false
	}
	return true
}

// InterceptSpec scripts a validate or transform hook.
type InterceptSpec struct {
	When *Condition `yaml:"when,omitempty"`
	// Rename replaces the action type on allow or next.
	Rename string `yaml:"rename,omitempty"`
	// RejectType is the action rejected with when When does not hold.
	// Empty filters the action out.
	RejectType string `yaml:"reject_type,omitempty"`
	// Redispatch is auto, always or never.
	Redispatch string        `yaml:"redispatch,omitempty"`
	Delay      time.Duration `yaml:"delay,omitempty"`
	Fail       string        `yaml:"fail,omitempty"`
	Stall      bool          `yaml:"stall,omitempty"`
}

// ProcessSpec scripts a process hook.
type ProcessSpec struct {
	Delay    time.Duration `yaml:"delay,omitempty"`
	Dispatch []string      `yaml:"dispatch,omitempty"`
	Return   string        `yaml:"return,omitempty"`
	Fail     string        `yaml:"fail,omitempty"`
	Stall    bool          `yaml:"stall,omitempty"`
}

// ActionSpec is one entry of the action script.
type ActionSpec struct {
	Type    string        `yaml:"type"`
	Payload any           `yaml:"payload,omitempty"`
	After   time.Duration `yaml:"after,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read scenario file").
			WithMetadata(map[string]any{"path": path})
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a scenario. Unknown fields are rejected.
func Decode(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read scenario")
	}

	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse scenario YAML").
			WithTextCode(ErrCodeParseScenario)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate reports every problem found in the scenario as one error.
func (s *Scenario) Validate() error {
	var issues []string
	fail := func(field, format string, args ...any) {
		issues = append(issues, field+": "+fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(s.Name) == "" {
		fail("name", "is required")
	}
	if _, ok := processOrders[s.ProcessOrder]; !ok {
		fail("process_order", "unknown order %q", s.ProcessOrder)
	}
	if len(s.Actions) == 0 {
		fail("actions", "at least one action is required")
	}

	names := map[string]bool{}
	for i, l := range s.Logics {
		field := fmt.Sprintf("logics[%d]", i)
		if l.Type == "" && len(l.Types) == 0 {
			fail(field+".type", "is required")
		}
		if l.Type != "" && len(l.Types) > 0 {
			fail(field+".types", "cannot be combined with type")
		}
		if l.Validate != nil && l.Transform != nil {
			fail(field, "cannot define both validate and transform")
		}
		if l.Name != "" {
			if names[l.Name] {
				fail(field+".name", "duplicate name %q", l.Name)
			}
			names[l.Name] = true
		}
		if l.Debounce < 0 || l.Throttle < 0 || l.WarnTimeout < 0 {
			fail(field, "durations cannot be negative")
		}
		hooks := []struct {
			name string
			spec *InterceptSpec
		}{{"validate", l.Validate}, {"transform", l.Transform}}
		for _, h := range hooks {
			hook, ic := h.name, h.spec
			if ic == nil {
				continue
			}
			if _, ok := redispatchModes[ic.Redispatch]; !ok {
				fail(field+"."+hook+".redispatch", "unknown mode %q", ic.Redispatch)
			}
			if ic.Delay < 0 {
				fail(field+"."+hook+".delay", "cannot be negative")
			}
			if ic.Fail != "" && ic.Delay > 0 {
				fail(field+"."+hook+".fail", "cannot be combined with delay")
			}
		}
		if l.Transform != nil && l.Transform.RejectType != "" {
			fail(field+".transform.reject_type", "only applies to validate")
		}
		if l.Process == nil && l.Options != (ProcessOptions{}) {
			fail(field+".options", "require a process")
		}
		if l.Process != nil && l.Process.Delay < 0 {
			fail(field+".process.delay", "cannot be negative")
		}
	}

	for i, a := range s.Actions {
		if a.Type == "" {
			fail(fmt.Sprintf("actions[%d].type", i), "is required")
		}
		if a.After < 0 {
			fail(fmt.Sprintf("actions[%d].after", i), "cannot be negative")
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return errors.New("invalid scenario: "+strings.Join(issues, "; "), errors.CategoryValidation).
		WithTextCode(ErrCodeInvalidScenario).
		WithMetadata(map[string]any{"scenario": s.Name, "issues": issues})
}
