package session

import (
	"sync"
	"time"
)

// DefaultLivenessInterval is how often an attached receiver is checked.
const DefaultLivenessInterval = 500 * time.Millisecond

// Liveness is a handle on the receiving display.
type Liveness interface {
	Closed() bool
}

// Watcher polls a Liveness handle and fires once when it reports closed.
type Watcher struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Watch starts polling handle every interval. onClosed runs on the watcher
// goroutine and is not called after Stop returns.
func Watch(handle Liveness, interval time.Duration, onClosed func()) *Watcher {
	if interval <= 0 {
		interval = DefaultLivenessInterval
	}
	w := &Watcher{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				if handle.Closed() {
					onClosed()
					return
				}
			}
		}
	}()
	return w
}

// Stop ends polling and waits for the watcher goroutine.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

// Done is closed when the watcher has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
