package scenario

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goliatone/go-errors"
	logic "github.com/goliatone/go-logic"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type eventRecord struct {
	Op            string `json:"op"`
	Name          string `json:"name,omitempty"`
	Action        string `json:"action,omitempty"`
	NextAction    string `json:"nextAction,omitempty"`
	DispAction    string `json:"dispAction,omitempty"`
	ShouldProcess *bool  `json:"shouldProcess,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Err           string `json:"err,omitempty"`
}

type resultRecord struct {
	Name    string        `json:"name"`
	Events  []eventRecord `json:"events"`
	State   int           `json:"state"`
	Reduced []string      `json:"reduced"`
	Errors  []string      `json:"errors,omitempty"`
	Pending int           `json:"pending,omitempty"`
}

func typeOf(act *logic.Action) string {
	if act == nil {
		return ""
	}
	return act.Type
}

// Format writes the result as text (one event per line) or JSON.
func Format(w io.Writer, r *Result, format string) error {
	switch format {
	case "", FormatText:
		return formatText(w, r)
	case FormatJSON:
		return formatJSON(w, r)
	default:
		return errors.New(fmt.Sprintf("unknown format %q", format), errors.CategoryBadInput).
			WithTextCode("SCENARIO_FORMAT")
	}
}

func formatText(w io.Writer, r *Result) error {
	if _, err := fmt.Fprintf(w, "# %s\n", r.Name); err != nil {
		return err
	}
	for _, evt := range r.Events {
		if _, err := fmt.Fprintln(w, evt.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "state: %d\nreduced: %v\n", r.State, r.Reduced); err != nil {
		return err
	}
	if r.Pending > 0 {
		if _, err := fmt.Fprintf(w, "pending: %d\n", r.Pending); err != nil {
			return err
		}
	}
	for _, msg := range r.Errors {
		if _, err := fmt.Fprintf(w, "error: %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}

func formatJSON(w io.Writer, r *Result) error {
	out := resultRecord{
		Name:    r.Name,
		Events:  make([]eventRecord, 0, len(r.Events)),
		State:   r.State,
		Reduced: r.Reduced,
		Errors:  r.Errors,
		Pending: r.Pending,
	}
	if out.Reduced == nil {
		out.Reduced = []string{}
	}
	for _, evt := range r.Events {
		out.Events = append(out.Events, eventRecord{
			Op:            string(evt.Op),
			Name:          evt.Name,
			Action:        typeOf(evt.Action),
			NextAction:    typeOf(evt.NextAction),
			DispAction:    typeOf(evt.DispAction),
			ShouldProcess: evt.ShouldProcess,
			Reason:        evt.Reason,
			Err:           evt.Err,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
