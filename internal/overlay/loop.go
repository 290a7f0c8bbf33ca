package overlay

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval is roughly one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Loop calls a step function once per frame until the step reports that
// its overlay is no longer active or the loop is stopped. It never runs
// unless started.
type Loop struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	rearm  bool
}

// NewLoop creates a stopped loop ticking every interval.
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{interval: interval}
}

// Start runs step on every tick in a new goroutine. It reports false if the
// loop is already running; a running loop whose step is about to report
// inactive then keeps going for at least one more tick instead of exiting.
func (l *Loop) Start(ctx context.Context, step func() bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		l.rearm = true
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.rearm = false

	go func() {
		defer close(done)
		defer cancel()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				l.finish(done)
				return
			case <-ticker.C:
				l.mu.Lock()
				l.rearm = false
				l.mu.Unlock()
				if !step() && l.exit(done) {
					return
				}
			}
		}
	}()
	return true
}

// exit clears the running state unless Start was called since the last
// step began.
func (l *Loop) exit(done chan struct{}) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rearm {
		l.rearm = false
		return false
	}
	l.clear(done)
	return true
}

func (l *Loop) finish(done chan struct{}) {
	l.mu.Lock()
	l.clear(done)
	l.mu.Unlock()
}

func (l *Loop) clear(done chan struct{}) {
	if l.done == done {
		l.done = nil
		l.cancel = nil
		l.rearm = false
	}
}

// Stop ends the loop and waits for the current step to return.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}
