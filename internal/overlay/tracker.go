package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
)

// FrameSource provides the content frame as currently displayed.
type FrameSource interface {
	LiveFrame() (geometry.ContentFrame, bool)
}

// PositionSource reports whether an overlay is active and where it points.
type PositionSource func() (pos *geometry.NormalizedPoint, active bool)

// Placement is the resolved on-screen position of a tracked overlay.
type Placement struct {
	Visible bool                `json:"visible"`
	Point   geometry.PixelPoint `json:"point"`
	Radius  float64             `json:"radius,omitempty"`
}

// Tracker re-resolves an overlay against the live frame on every tick while
// the overlay is active. The frame is re-read each time since zoom and pan
// move it without any separate notification.
type Tracker struct {
	frames   FrameSource
	position PositionSource
	resolve  func(*geometry.NormalizedPoint, geometry.ContentFrame) Placement
	loop     *Loop

	mu     sync.RWMutex
	latest Placement
}

// NewSpotlightTracker tracks a spotlight mask.
func NewSpotlightTracker(frames FrameSource, position PositionSource, s Spotlight, interval time.Duration) *Tracker {
	return newTracker(frames, position, interval, func(pos *geometry.NormalizedPoint, f geometry.ContentFrame) Placement {
		m, ok := s.Resolve(pos, f)
		if !ok {
			return Placement{}
		}
		return Placement{Visible: true, Point: m.Center, Radius: m.Radius}
	})
}

// NewPointerTracker tracks the pointer dot.
func NewPointerTracker(frames FrameSource, position PositionSource, interval time.Duration) *Tracker {
	return newTracker(frames, position, interval, func(pos *geometry.NormalizedPoint, f geometry.ContentFrame) Placement {
		p, ok := Pointer{}.Resolve(pos, f)
		if !ok {
			return Placement{}
		}
		return Placement{Visible: true, Point: p}
	})
}

func newTracker(frames FrameSource, position PositionSource, interval time.Duration, resolve func(*geometry.NormalizedPoint, geometry.ContentFrame) Placement) *Tracker {
	return &Tracker{
		frames:   frames,
		position: position,
		resolve:  resolve,
		loop:     NewLoop(interval),
	}
}

// Activate resolves the overlay once and starts per-frame tracking if it
// is not already running.
func (t *Tracker) Activate(ctx context.Context) {
	if t.step() {
		t.loop.Start(ctx, t.step)
	}
}

// Stop ends tracking and hides the overlay.
func (t *Tracker) Stop() {
	t.loop.Stop()
	t.set(Placement{})
}

// Running reports whether per-frame tracking is active.
func (t *Tracker) Running() bool {
	return t.loop.Running()
}

// Latest returns the most recent placement.
func (t *Tracker) Latest() Placement {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

func (t *Tracker) step() bool {
	pos, active := t.position()
	if !active {
		t.set(Placement{})
		return false
	}
	frame, ok := t.frames.LiveFrame()
	if !ok {
		t.set(Placement{})
		return true
	}
	t.set(t.resolve(pos, frame))
	return true
}

func (t *Tracker) set(p Placement) {
	t.mu.Lock()
	t.latest = p
	t.mu.Unlock()
}
