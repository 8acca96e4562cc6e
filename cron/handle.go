package cron

import (
	"sync"

	logic "github.com/goliatone/go-logic"
)

// ScheduleStatus reports a schedule handle state.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusRunning   ScheduleStatus = "running"
	ScheduleStatusIdle      ScheduleStatus = "idle"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCanceled  ScheduleStatus = "canceled"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusStopped   ScheduleStatus = "stopped"
)

// Handle controls one scheduled action source.
type Handle interface {
	logic.Subscription
	Cancel()
	Status() ScheduleStatus
	Err() error
	Done() <-chan struct{}
	ID() int64
	// Dispatched counts the actions accepted by the dispatcher.
	Dispatched() int
	// Last returns the most recently dispatched action.
	Last() *logic.Action
}

type schedule struct {
	scheduler *Scheduler
	id        int64
	entryID   int
	done      chan struct{}

	mu         sync.RWMutex
	status     ScheduleStatus
	err        error
	dispatched int
	last       *logic.Action

	cancelOnce sync.Once
	doneOnce   sync.Once
}

func (s *schedule) Unsubscribe() {
	s.Cancel()
}

func (s *schedule) Cancel() {
	if s == nil {
		return
	}
	s.cancelOnce.Do(func() {
		if s.scheduler != nil {
			s.scheduler.removeHandle(s.id)
		}
		s.setTerminal(ScheduleStatusCanceled, nil)
	})
}

func (s *schedule) Status() ScheduleStatus {
	if s == nil {
		return ScheduleStatusStopped
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *schedule) Err() error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *schedule) Done() <-chan struct{} {
	if s == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

func (s *schedule) ID() int64 {
	if s == nil {
		return 0
	}
	return s.id
}

func (s *schedule) Dispatched() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatched
}

func (s *schedule) Last() *logic.Action {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *schedule) recordDispatch(act *logic.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched++
	s.last = act
}

func (s *schedule) setStatus(status ScheduleStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.err = err
}

// setTerminal records a final status. Only the first terminal status sticks.
func (s *schedule) setTerminal(status ScheduleStatus, err error) {
	s.doneOnce.Do(func() {
		s.setStatus(status, err)
		if s.done != nil {
			close(s.done)
		}
	})
}
