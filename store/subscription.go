package store

import (
	logic "github.com/goliatone/go-logic"
)

type Subscription interface {
	Unsubscribe()
}

type listener[S any] struct {
	id uint64
	fn func(S, *logic.Action)
}

type subs[S any] struct {
	store *Store[S]
	id    uint64
}

// Subscribe registers fn to run after every reduced action with the new
// state. Listeners may dispatch.
func (s *Store[S]) Subscribe(fn func(state S, act *logic.Action)) Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextID++
	l := &listener[S]{id: s.nextID, fn: fn}
	newList := make([]*listener[S], 0, len(s.subs)+1)
	newList = append(newList, s.subs...)
	s.subs = append(newList, l)
	return &subs[S]{store: s, id: l.id}
}

func (u *subs[S]) Unsubscribe() {
	s := u.store
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	newList := make([]*listener[S], 0, len(s.subs))
	for _, l := range s.subs {
		if l.id != u.id {
			newList = append(newList, l)
		}
	}
	s.subs = newList
}

func (s *Store[S]) notify(state S, act *logic.Action) {
	s.subsMu.RLock()
	list := s.subs
	s.subsMu.RUnlock()

	for _, l := range list {
		if l.fn != nil {
			l.fn(state, act)
		}
	}
}
