package runner

import (
	"sync"
	"time"
)

// Watchdog fires a callback once if it is not stopped within its timeout.
// It only observes; it never interrupts the watched work.
type Watchdog struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

// NewWatchdog arms a watchdog. A non-positive timeout returns a watchdog
// that never fires.
func NewWatchdog(timeout time.Duration, onExpire func()) *Watchdog {
	w := &Watchdog{}
	if timeout <= 0 || onExpire == nil {
		w.stopped = true
		return w
	}
	w.timer = time.AfterFunc(timeout, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.fired = true
		w.mu.Unlock()
		onExpire()
	})
	return w
}

// Stop disarms the watchdog. It is safe to call more than once.
func (w *Watchdog) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Fired reports whether the callback ran.
func (w *Watchdog) Fired() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
