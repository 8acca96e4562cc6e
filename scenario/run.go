package scenario

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	logic "github.com/goliatone/go-logic"
	"github.com/goliatone/go-logic/cron"
	"github.com/goliatone/go-logic/store"
	"github.com/goliatone/go-logic/tracing"
	"go.opentelemetry.io/otel/trace"
)

const ErrCodeUnsettled = "SCENARIO_UNSETTLED"

// DefaultTimeout bounds how long Run waits for the engine to settle.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one run.
type Result struct {
	Name    string
	Events  []logic.Event
	State   int
	Reduced []string
	Errors  []string
	// Pending is the engine pending count when Run returned.
	Pending int
}

type runConfig struct {
	logger  logic.Logger
	timeout time.Duration
	tracer  trace.TracerProvider
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithLogger sets the engine logger. Runs are silent by default.
func WithLogger(logger logic.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds the wait for the engine to settle.
func WithTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTracerProvider records one span per lifecycle on tp.
func WithTracerProvider(tp trace.TracerProvider) RunOption {
	return func(c *runConfig) {
		c.tracer = tp
	}
}

type transcript struct {
	mu      sync.Mutex
	events  []logic.Event
	reduced []string
	errs    []string
}

func (t *transcript) event(evt logic.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, evt)
}

func (t *transcript) reduce(_ int, act *logic.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reduced = append(t.reduced, act.Type)
}

func (t *transcript) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs = append(t.errs, err.Error())
}

// Run executes the scenario on a fresh engine and store. When the engine
// does not settle in time the partial result is returned with an error.
func Run(ctx context.Context, s *Scenario, opts ...RunOption) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cfg := runConfig{logger: logic.NewFmtLogger(io.Discard), timeout: DefaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	seq := 0
	e, err := logic.New(s.Build(),
		logic.WithLogger(cfg.logger),
		logic.WithProcessOrder(s.Order()),
		logic.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("%s-%d", s.Name, seq)
		}),
	)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	if cfg.tracer != nil {
		bridge := tracing.New(e.Monitor(), tracing.WithTracerProvider(cfg.tracer))
		defer bridge.Close()
	}

	rec := &transcript{}
	sub := e.Monitor().Subscribe(rec.event)
	defer sub.Unsubscribe()

	st, err := store.New(s.DeltaReducer(), s.InitialState, e.Middleware())
	if err != nil {
		return nil, err
	}
	st.Subscribe(rec.reduce)

	sched := cron.NewScheduler(st, cron.WithErrorHandler(rec.fail), cron.WithLogLevel(cron.LogLevelSilent))

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var handles []cron.Handle
	for _, a := range s.Actions {
		act := logic.NewAction(a.Type, a.Payload)
		if a.After <= 0 {
			if err := st.Dispatch(act); err != nil {
				rec.fail(err)
			}
			continue
		}
		h, err := sched.ScheduleAfter(a.After, func(time.Time) *logic.Action { return act })
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}

	waitErr := waitHandles(ctx, handles)
	if waitErr == nil {
		waitErr = e.Wait(ctx)
	}
	_ = sched.Stop(context.Background())

	res := &Result{Name: s.Name, State: st.State(), Pending: e.Pending()}
	rec.mu.Lock()
	res.Events = append([]logic.Event(nil), rec.events...)
	res.Reduced = append([]string(nil), rec.reduced...)
	res.Errors = append([]string(nil), rec.errs...)
	rec.mu.Unlock()

	if waitErr != nil {
		return res, errors.Wrap(waitErr, errors.CategoryHandler, "scenario did not settle").
			WithTextCode(ErrCodeUnsettled).
			WithMetadata(map[string]any{"scenario": s.Name, "pending": res.Pending})
	}
	return res, nil
}

func waitHandles(ctx context.Context, handles []cron.Handle) error {
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
