package logic

import (
	"sync"
	"sync/atomic"
)

// serializer runs engine transitions one at a time. A call made from the
// goroutine that currently owns it runs inline, so a dispatch issued from
// inside a process body re-enters the pipeline synchronously. Calls from any
// other goroutine wait their turn.
//
// User code that blocks inside a synchronous body while waiting on another
// goroutine that calls back into the engine will deadlock.
type serializer struct {
	mu    sync.Mutex
	owner atomic.Uint64
}

func (s *serializer) run(fn func()) {
	gid := GetGoroutineID()
	if s.owner.Load() == gid {
		fn()
		return
	}

	s.mu.Lock()
	s.owner.Store(gid)
	defer func() {
		s.owner.Store(0)
		s.mu.Unlock()
	}()
	fn()
}
