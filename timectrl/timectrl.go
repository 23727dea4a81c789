package timectrl

import (
	"sync"
	"time"
)

// Clock is the monotonic time source injected into the safety engine. All
// debounce and grace-period timers are measured against it, never against
// wall-clock time, so host clock adjustments cannot shorten or extend a
// grace window.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time
}

// SystemClock reads the host clock. time.Time carries a monotonic reading
// on all supported platforms, so Sub() on two SystemClock values is immune
// to wall-clock steps.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a manual clock at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TickController drives the supervisor's evaluation loop at a fixed cadence
// and notifies registered listeners once per tick. The engine itself is
// synchronous; the controller is the only place a goroutine is spawned.
type TickController struct {
	mu    sync.RWMutex
	clock Clock
	tick  time.Duration

	listeners []func(time.Time)
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewTickController constructs a controller over the given clock.
func NewTickController(clock Clock, tick time.Duration) *TickController {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TickController{
		clock: clock,
		tick:  tick,
		stop:  make(chan struct{}),
	}
}

// AddListener registers a callback invoked on every tick. Listeners run
// sequentially on the controller goroutine, so the whole tick executes as a
// single critical section.
func (tc *TickController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the loop until Stop is called or, when duration > 0, until the
// duration elapses. It returns a channel closed when the loop exits.
func (tc *TickController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(tc.tick)
		defer ticker.Stop()

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}
			select {
			case <-tc.stop:
				return
			case <-ticker.C:
			}
			elapsed += tc.tick

			now := tc.clock.Now()
			tc.mu.RLock()
			listeners := tc.listeners
			tc.mu.RUnlock()
			for _, fn := range listeners {
				fn(now)
			}
		}
	}()
	return done
}

// Stop terminates the loop. Safe to call more than once.
func (tc *TickController) Stop() {
	tc.stopOnce.Do(func() { close(tc.stop) })
}
