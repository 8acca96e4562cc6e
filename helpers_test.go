package logic

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testStore is a minimal host: an int state, a reducer and the engine
// middleware in front of it.
type testStore struct {
	mu       sync.Mutex
	state    int
	reduce   func(int, *Action) int
	fail     map[string]error
	refuse   map[string]error
	reduced  []string
	dispatch Next
}

func newTestStore(t *testing.T, e *Engine, initial int, reduce func(int, *Action) int) *testStore {
	t.Helper()
	s := &testStore{state: initial, reduce: reduce, fail: map[string]error{}, refuse: map[string]error{}}
	s.dispatch = e.Middleware()(s)(s.apply)
	require.NotNil(t, s.dispatch)
	return s
}

func (s *testStore) GetState() any {
	return s.Count()
}

func (s *testStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *testStore) Reduced() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reduced...)
}

func (s *testStore) Dispatch(act *Action) error {
	s.mu.Lock()
	err := s.refuse[act.Type]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.dispatch(act)
}

func (s *testStore) apply(act *Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[act.Type]; err != nil {
		return err
	}
	if s.reduce != nil {
		s.state = s.reduce(s.state, act)
	}
	s.reduced = append(s.reduced, act.Type)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(e *Engine) *recorder {
	r := &recorder{}
	e.Monitor().Subscribe(r.add)
	return r
}

func (r *recorder) add(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) Lines() []string {
	events := r.Events()
	out := make([]string, 0, len(events))
	for _, evt := range events {
		out = append(out, evt.String())
	}
	return out
}

func (r *recorder) Count(op Op) int {
	n := 0
	for _, evt := range r.Events() {
		if evt.Op == op {
			n++
		}
	}
	return n
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type captureLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{lines: map[string][]string{}}
}

func (l *captureLogger) Debug(msg string, args ...any) { l.log("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.log("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.log("error", msg, args...) }

func (l *captureLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[level] = append(l.lines[level], fmt.Sprintf(msg, args...))
}

func (l *captureLogger) Lines(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines[level]...)
}

func (l *captureLogger) Contains(level, substr string) bool {
	for _, line := range l.Lines(level) {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func newEngine(t *testing.T, logics []*Logic, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(newCaptureLogger())}, opts...)
	e, err := New(logics, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func dispatchAndDone(actionType string) ProcessFunc {
	return func(_ *Deps, dispatch DispatchFunc, done func()) (any, error) {
		dispatch(NewAction(actionType))
		done()
		return nil, nil
	}
}
