package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/overlay"
	"github.com/WebPressive/webpressive.github.io/internal/protocol"
	"github.com/WebPressive/webpressive.github.io/internal/render"
)

// ReceiverOptions tunes a Receiver.
type ReceiverOptions struct {
	SpotlightRadius float64
	Logger          *log.Logger
	// OnUpdate, if set, runs after every applied message.
	OnUpdate func(protocol.Message)
}

// ReceiverView is what the receiving display draws.
type ReceiverView struct {
	Slide     *models.SlideRecord    `json:"slide,omitempty"`
	Frame     *geometry.ContentFrame `json:"frame,omitempty"`
	Viewport  geometry.ViewportState `json:"viewport"`
	Spotlight overlay.Placement      `json:"spotlight"`
	Pointer   overlay.Placement      `json:"pointer"`
	Links     overlay.Layout         `json:"links"`
}

// Receiver mirrors a presenter. It holds its own copies of the slide
// images and replaces its state wholesale on every update.
type Receiver struct {
	port     protocol.Port
	store    *render.ImageStore
	logger   *log.Logger
	radius   float64
	onUpdate func(protocol.Message)

	mu        sync.RWMutex
	slides    []models.SlideRecord
	startTime *int64
	state     protocol.StateUpdate
	synced    bool
	resync    bool // a SYNC_REQUEST is outstanding
	container geometry.Rect
}

// NewReceiver creates a receiver on port.
func NewReceiver(port protocol.Port, opts ReceiverOptions) *Receiver {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	radius := opts.SpotlightRadius
	if radius <= 0 {
		radius = overlay.DefaultSpotlightRadius
	}
	return &Receiver{
		port:     port,
		store:    render.NewImageStore(),
		logger:   logger,
		radius:   radius,
		onUpdate: opts.OnUpdate,
		state: protocol.StateUpdate{
			Mode:     models.ModeUpload,
			Viewport: geometry.Identity,
		},
	}
}

// Start requests a snapshot and applies frames until ctx is done or the
// port closes.
func (r *Receiver) Start(ctx context.Context) error {
	if err := r.RequestSync(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-r.port.Frames():
			if !ok {
				return protocol.ErrClosed
			}
			if err := r.Apply(frame); err != nil {
				r.logger.Printf("Failed to apply frame: %v", err)
			}
			if r.needsResync() {
				if err := r.RequestSync(ctx); err != nil {
					r.logger.Printf("Failed to re-request snapshot: %v", err)
				}
			}
		}
	}
}

// RequestSync asks the presenter for a full snapshot. It may be repeated.
func (r *Receiver) RequestSync(ctx context.Context) error {
	if err := protocol.Post(ctx, r.port, protocol.SyncRequest{}); err != nil {
		return fmt.Errorf("failed to request sync: %w", err)
	}
	return nil
}

// Apply processes one frame from the presenter.
func (r *Receiver) Apply(frame []byte) error {
	msg, err := protocol.Decode(frame)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case protocol.SyncInit:
		slides, err := protocol.RestoreSlides(m.Slides, r.store)
		if err != nil {
			return err
		}
		r.mu.Lock()
		old := r.slides
		r.slides = slides
		r.startTime = m.StartTime
		r.synced = true
		r.resync = false
		r.mu.Unlock()
		for _, s := range old {
			r.store.Release(s.Image)
		}
	case protocol.StateUpdate:
		r.mu.Lock()
		r.state = m
		r.mu.Unlock()
	default:
		// requests from other receivers
		return nil
	}

	if r.onUpdate != nil {
		r.onUpdate(msg)
	}
	return nil
}

// needsResync reports, once per outstanding request, that the last state
// names a slide this receiver does not have. The presenter loaded a new deck.
func (r *Receiver) needsResync() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resync || r.state.Mode == models.ModeUpload {
		return false
	}
	if r.state.Index < len(r.slides) {
		return false
	}
	r.resync = true
	return true
}

// Synced reports whether a snapshot has been received.
func (r *Receiver) Synced() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synced
}

// State returns the last applied state.
func (r *Receiver) State() protocol.StateUpdate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Slides returns the mirrored slides.
func (r *Receiver) Slides() []models.SlideRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SlideRecord, len(r.slides))
	copy(out, r.slides)
	return out
}

// StartTime returns the presenter's timer start in Unix milliseconds.
func (r *Receiver) StartTime() *int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startTime
}

// Image returns a mirrored slide image.
func (r *Receiver) Image(ref models.ImageRef) (render.Image, error) {
	return r.store.Get(ref)
}

// SetContainer records the size of the receiving display.
func (r *Receiver) SetContainer(c geometry.Rect) {
	r.mu.Lock()
	r.container = c
	r.mu.Unlock()
}

// View resolves the current slide and overlays against the receiving
// display. Links are laid out but never activate.
func (r *Receiver) View() ReceiverView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v := ReceiverView{Viewport: r.state.Viewport}
	if r.state.Index < 0 || r.state.Index >= len(r.slides) {
		return v
	}
	slide := r.slides[r.state.Index]
	v.Slide = &slide

	local := geometry.Rect{Width: r.container.Width, Height: r.container.Height}
	live, ok := geometry.LiveContentFrame(local, slide.Aspect(), r.state.Viewport)
	if !ok {
		return v
	}
	v.Frame = &live

	if r.state.Mode == models.ModePresentation {
		if r.state.SpotlightOn {
			if m, ok := (overlay.Spotlight{Radius: r.radius}).Resolve(r.state.SpotlightPos, live); ok {
				v.Spotlight = overlay.Placement{Visible: true, Point: m.Center, Radius: m.Radius}
			}
		}
		if r.state.PointerOn {
			if pt, ok := (overlay.Pointer{}).Resolve(r.state.PointerPos, live); ok {
				v.Pointer = overlay.Placement{Visible: true, Point: pt}
			}
		}
	}

	base, _ := geometry.ComputeContentFrame(local, slide.Aspect())
	v.Links = overlay.LinkLayer{}.Layout(slide.Links, base, r.state.Viewport, local)
	return v
}

// Close releases the mirrored images.
func (r *Receiver) Close() {
	r.mu.Lock()
	old := r.slides
	r.slides = nil
	r.mu.Unlock()
	for _, s := range old {
		r.store.Release(s.Image)
	}
}
