package cron

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	logic "github.com/goliatone/go-logic"

	rcron "github.com/robfig/cron/v3"
)

const (
	ErrCodeEmptyExpression = "CRON_EMPTY_EXPRESSION"
	ErrCodeInvalidSchedule = "CRON_INVALID_SCHEDULE"
	ErrCodeNilFactory      = "CRON_NIL_FACTORY"
)

// Dispatcher accepts scheduled actions. A store.Store satisfies it.
type Dispatcher interface {
	Dispatch(act *logic.Action) error
}

// ActionFactory builds the action for one run. Returning nil skips the run.
type ActionFactory func(at time.Time) *logic.Action

// Every returns a factory producing a fresh action of the given type on
// each run, with the run time as payload.
func Every(actionType string) ActionFactory {
	return func(at time.Time) *logic.Action {
		return logic.NewAction(actionType, at)
	}
}

// Scheduler dispatches actions on cron expressions or after a delay.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	dispatcher   Dispatcher
	location     *time.Location
	errorHandler func(error)

	logger    logic.Logger
	seconds   bool
	logWriter io.Writer
	logLevel  LogLevel

	nextHandleID int64
	handles      map[int64]*schedule
}

// NewScheduler creates a new scheduler dispatching into d.
func NewScheduler(d Dispatcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		dispatcher: d,
		location:   time.Local,
		logLevel:   LogLevelError,
		errorHandler: func(err error) {
			log.Printf("error: %v\n", err)
		},
		handles: make(map[int64]*schedule),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.cron = rcron.New(s.build()...)
	return s
}

// ScheduleCron dispatches the factory's action on every tick of expr.
func (s *Scheduler) ScheduleCron(expr string, factory ActionFactory) (Handle, error) {
	if expr == "" {
		return nil, errors.New("cron expression cannot be empty", errors.CategoryBadInput).
			WithTextCode(ErrCodeEmptyExpression)
	}
	run, err := s.buildRunnable(factory)
	if err != nil {
		return nil, err
	}

	sub := s.newHandle()
	job := rcron.FuncJob(func() {
		status := sub.Status()
		if isTerminalStatus(status) {
			return
		}

		sub.setStatus(ScheduleStatusRunning, nil)
		if err := run(sub); err != nil {
			sub.setStatus(ScheduleStatusFailed, err)
			s.errorHandler(err)
			return
		}

		if !isTerminalStatus(sub.Status()) {
			sub.setStatus(ScheduleStatusIdle, nil)
		}
	})

	entryID, err := s.cron.AddJob(expr, job)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to add job").
			WithTextCode(ErrCodeInvalidSchedule).
			WithMetadata(map[string]any{"expression": expr})
	}
	sub.entryID = int(entryID)
	s.storeHandle(sub)
	return sub, nil
}

// ScheduleAfter dispatches once after delay.
func (s *Scheduler) ScheduleAfter(delay time.Duration, factory ActionFactory) (Handle, error) {
	if delay < 0 {
		delay = 0
	}
	return s.ScheduleAt(time.Now().Add(delay), factory)
}

// ScheduleAt dispatches once at a specific time.
func (s *Scheduler) ScheduleAt(at time.Time, factory ActionFactory) (Handle, error) {
	run, err := s.buildRunnable(factory)
	if err != nil {
		return nil, err
	}

	sub := s.newHandle()
	s.storeHandle(sub)

	go func() {
		wait := time.Until(at)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-sub.Done():
			return
		}

		if isTerminalStatus(sub.Status()) {
			return
		}
		sub.setStatus(ScheduleStatusRunning, nil)
		if err := run(sub); err != nil {
			sub.setTerminal(ScheduleStatusFailed, err)
			s.errorHandler(err)
			s.removeStoredHandle(sub.id)
			return
		}
		sub.setTerminal(ScheduleStatusCompleted, nil)
		s.removeStoredHandle(sub.id)
	}()

	return sub, nil
}

// Start begins executing scheduled cron jobs.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop stops executing scheduled jobs and marks active handles as stopped.
func (s *Scheduler) Stop(_ context.Context) error {
	s.cron.Stop()

	var handles []*schedule
	s.mu.Lock()
	for _, handle := range s.handles {
		handles = append(handles, handle)
	}
	s.handles = make(map[int64]*schedule)
	s.mu.Unlock()

	for _, handle := range handles {
		if handle == nil {
			continue
		}
		if handle.entryID > 0 {
			s.cron.Remove(rcron.EntryID(handle.entryID))
		}
		if isTerminalStatus(handle.Status()) {
			continue
		}
		handle.setTerminal(ScheduleStatusStopped, nil)
	}
	return nil
}

// Pending returns the number of live handles.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

func (s *Scheduler) removeHandle(id int64) {
	handle := s.removeStoredHandle(id)
	if handle == nil {
		return
	}
	if handle.entryID > 0 {
		s.cron.Remove(rcron.EntryID(handle.entryID))
	}
}

func (s *Scheduler) removeStoredHandle(id int64) *schedule {
	if s == nil || id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.handles[id]
	delete(s.handles, id)
	return handle
}

func (s *Scheduler) storeHandle(handle *schedule) {
	if s == nil || handle == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[int64]*schedule)
	}
	s.handles[handle.id] = handle
}

func (s *Scheduler) newHandle() *schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	return &schedule{
		scheduler: s,
		id:        s.nextHandleID,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
	}
}

func isTerminalStatus(status ScheduleStatus) bool {
	switch status {
	case ScheduleStatusCompleted, ScheduleStatusCanceled, ScheduleStatusFailed, ScheduleStatusStopped:
		return true
	default:
		return false
	}
}

func (s *Scheduler) buildRunnable(factory ActionFactory) (func(*schedule) error, error) {
	if factory == nil {
		return nil, errors.New("action factory cannot be nil", errors.CategoryBadInput).
			WithTextCode(ErrCodeNilFactory)
	}
	if s.dispatcher == nil {
		return nil, logic.ErrHostUnbound.Clone()
	}

	return func(h *schedule) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("scheduled action panicked: %v", r)
			}
		}()
		act := factory(time.Now().In(s.location))
		if act == nil {
			return nil
		}
		if err := s.dispatcher.Dispatch(act); err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "scheduled dispatch failed").
				WithMetadata(map[string]any{"action": act.Type})
		}
		h.recordDispatch(act)
		return nil
	}, nil
}

func makeLogger(out io.Writer, level LogLevel) rcron.Logger {
	stdLogger := log.New(out, "cron: ", log.LstdFlags)
	cronLogger := rcron.PrintfLogger(stdLogger)
	if level >= LogLevelDebug {
		cronLogger = rcron.VerbosePrintfLogger(stdLogger)
	}
	return cronLogger
}

// build converts implementation-agnostic options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	opts := make([]rcron.Option, 0)

	if s.location != nil {
		opts = append(opts, rcron.WithLocation(s.location))
	}

	if s.seconds {
		opts = append(opts, rcron.WithSeconds())
	}

	if s.errorHandler != nil {
		opts = append(opts, rcron.WithChain(
			rcron.Recover(panicSink{handler: s.errorHandler}),
		))
	}

	var cronLogger rcron.Logger
	switch {
	case s.logger != nil:
		cronLogger = runnerLog{logger: s.logger, level: s.logLevel}
	case s.logWriter != nil:
		cronLogger = makeLogger(s.logWriter, s.logLevel)
	default:
		if s.logLevel > LogLevelSilent {
			cronLogger = makeLogger(os.Stdout, s.logLevel)
		}
	}

	if cronLogger != nil {
		opts = append(opts, rcron.WithLogger(cronLogger))
	}

	return opts
}
