package runner

import (
	"sync"
	"time"
)

// Debouncer holds the latest offered value and emits it once no new value
// has arrived for the configured wait.
type Debouncer[T any] struct {
	mu      sync.Mutex
	wait    time.Duration
	emit    func(T)
	timer   *time.Timer
	pending T
	has     bool
	gen     uint64
}

// NewDebouncer creates a trailing-edge debouncer.
func NewDebouncer[T any](wait time.Duration, emit func(T)) *Debouncer[T] {
	return &Debouncer[T]{wait: wait, emit: emit}
}

// Offer replaces the held value with v and restarts the wait. When a value
// was already held it is returned with replaced set to true.
func (d *Debouncer[T]) Offer(v T) (prev T, replaced bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.has {
		prev, replaced = d.pending, true
	}
	d.pending = v
	d.has = true
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.flush(gen) })
	return prev, replaced
}

func (d *Debouncer[T]) flush(gen uint64) {
	d.mu.Lock()
	if !d.has || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.pending
	var zero T
	d.pending = zero
	d.has = false
	d.mu.Unlock()

	d.emit(v)
}

// Stop drops the held value without emitting it.
func (d *Debouncer[T]) Stop() (held T, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	held, ok = d.pending, d.has
	var zero T
	d.pending = zero
	d.has = false
	d.gen++
	return held, ok
}

// Throttler lets the first call through and rejects the rest until the
// window has elapsed.
type Throttler struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
	now    func() time.Time
}

// NewThrottler creates a leading-edge throttler.
func NewThrottler(window time.Duration) *Throttler {
	return &Throttler{window: window, now: time.Now}
}

// Allow reports whether a call may pass now, opening a new window if so.
func (t *Throttler) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	return true
}
