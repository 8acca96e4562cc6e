package store

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-errors"
	logic "github.com/goliatone/go-logic"
)

const (
	ErrCodeNilReducer   = "STORE_NIL_REDUCER"
	ErrCodeNotReady     = "STORE_NOT_READY"
	ErrCodeReducerPanic = "STORE_REDUCER_PANIC"
)

// Reducer computes the next state for an action. It must not dispatch.
type Reducer[S any] func(state S, act *logic.Action) S

// Store is a minimal action bus: a single state value, a reducer and a
// middleware chain in front of it. It satisfies logic.Host.
type Store[S any] struct {
	mu       sync.RWMutex
	state    S
	reducer  Reducer[S]
	dispatch logic.Next

	subsMu sync.RWMutex
	subs   []*listener[S]
	nextID uint64
}

// New builds a store. The first middleware is the outermost one, so actions
// pass through middlewares in the order given before reaching the reducer.
func New[S any](reducer Reducer[S], initial S, middlewares ...logic.Middleware) (*Store[S], error) {
	if reducer == nil {
		return nil, errors.New("store reducer is required", errors.CategoryBadInput).
			WithTextCode(ErrCodeNilReducer)
	}

	s := &Store[S]{state: initial, reducer: reducer}

	chain := make([]func(logic.Next) logic.Next, 0, len(middlewares))
	for _, mw := range middlewares {
		if mw == nil {
			continue
		}
		chain = append(chain, mw(s))
	}

	next := logic.Next(s.reduce)
	for i := len(chain) - 1; i >= 0; i-- {
		next = chain[i](next)
	}
	s.dispatch = next
	return s, nil
}

// Dispatch sends act through the middleware chain.
func (s *Store[S]) Dispatch(act *logic.Action) error {
	if s.dispatch == nil {
		return errors.New("store is still applying middleware", errors.CategoryConflict).
			WithTextCode(ErrCodeNotReady)
	}
	return s.dispatch(act)
}

// GetState returns the current state as any.
func (s *Store[S]) GetState() any {
	return s.State()
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store[S]) reduce(act *logic.Action) (err error) {
	if act == nil {
		return logic.ErrNilAction
	}

	s.mu.Lock()
	next, err := s.apply(act)
	if err == nil {
		s.state = next
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(next, act)
	return nil
}

func (s *Store[S]) apply(act *logic.Action) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprintf("reducer panicked on %s: %v", act.Type, r), errors.CategoryInternal).
				WithTextCode(ErrCodeReducerPanic).
				WithMetadata(map[string]any{"action": act.Type})
		}
	}()
	return s.reducer(s.state, act), nil
}
