package session

import "time"

// Timer measures presentation time, excluding paused spans.
type Timer struct {
	start       time.Time
	started     bool
	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration
}

// Start (re)starts the timer at now, unpaused.
func (t *Timer) Start(now time.Time) {
	*t = Timer{start: now, started: true}
}

// Stop clears the timer.
func (t *Timer) Stop() {
	*t = Timer{}
}

// TogglePause pauses or resumes. It reports false if the timer never
// started.
func (t *Timer) TogglePause(now time.Time) bool {
	if !t.started {
		return false
	}
	if t.paused {
		t.pausedTotal += now.Sub(t.pausedAt)
		t.paused = false
		t.pausedAt = time.Time{}
		return true
	}
	t.paused = true
	t.pausedAt = now
	return true
}

// Paused reports whether the timer is paused.
func (t *Timer) Paused() bool { return t.paused }

// Elapsed returns running time at now.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	if !t.started {
		return 0
	}
	end := now
	if t.paused {
		end = t.pausedAt
	}
	d := end.Sub(t.start) - t.pausedTotal
	if d < 0 {
		return 0
	}
	return d
}

// StartTime returns the start as Unix milliseconds, or nil before Start.
func (t *Timer) StartTime() *int64 {
	if !t.started {
		return nil
	}
	ms := t.start.UnixMilli()
	return &ms
}
