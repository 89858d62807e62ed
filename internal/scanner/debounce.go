package scanner

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DebounceWindow is how long an identical scan is ignored after it was accepted
const DebounceWindow = 3 * time.Second

// Debouncer drops repeats of the same value delivered by a steady scan
// target. It reads time from the injected clock; the real clock carries a
// monotonic reading, so wall-clock jumps do not affect it.
type Debouncer struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration

	last   string
	lastAt time.Time
	seen   bool
}

// NewDebouncer creates a Debouncer. A zero window uses DebounceWindow.
func NewDebouncer(c clock.Clock, window time.Duration) *Debouncer {
	if c == nil {
		c = clock.New()
	}
	if window <= 0 {
		window = DebounceWindow
	}
	return &Debouncer{clock: c, window: window}
}

// Accept reports whether value should be processed. A value equal to the
// last accepted one is rejected until window has elapsed since that
// acceptance; any accepted value becomes the new reference.
func (d *Debouncer) Accept(value string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if d.seen && value == d.last && now.Sub(d.lastAt) < d.window {
		return false
	}

	d.last = value
	d.lastAt = now
	d.seen = true
	return true
}
