// Package viewport owns zoom, pan and region-selection state for the slide
// currently on screen.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/models"
)

var (
	// ErrNoSlide is returned when no slide is displayed.
	ErrNoSlide = errors.New("no slide displayed")
	// ErrNotPresenting is returned for zoom operations outside presentation mode.
	ErrNotPresenting = errors.New("viewport is not in presentation mode")
	// ErrSuperseded is returned when a newer zoom or slide change replaced a
	// render while it was in flight.
	ErrSuperseded = errors.New("zoom superseded")
)

// Phase is the interaction state of the viewport.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseZoomed
	PhaseRegionSelecting
	PhasePanning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseZoomed:
		return "zoomed"
	case PhaseRegionSelecting:
		return "region-selecting"
	case PhasePanning:
		return "panning"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Direction is a keyboard pan direction.
type Direction int

const (
	PanLeft Direction = iota
	PanRight
	PanUp
	PanDown
)

// Renderer re-renders a page at a zoom resolution.
type Renderer interface {
	RenderPageAtZoom(ctx context.Context, page int, zoom float64) (models.ImageRef, error)
	Release(ref models.ImageRef)
}

// Options tunes the controller.
type Options struct {
	MinZoom       float64
	MaxZoom       float64
	RegionMinZoom float64 // lower clamp for region zoom
	MinRegion     float64 // smallest normalized side of a region drag
	PanStep       float64 // keyboard pan step in pixels
	WheelStep     float64 // zoom delta per wheel tick
	Logger        *log.Logger
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		MinZoom:       0.5,
		MaxZoom:       3.0,
		RegionMinZoom: 1.5,
		MinRegion:     0.01,
		PanStep:       50,
		WheelStep:     0.1,
	}
}

// Drag is an in-progress region gesture in container pixels.
type Drag struct {
	Start   geometry.PixelPoint
	Current geometry.PixelPoint
}

// Controller is the viewport state machine. Methods are safe for concurrent
// use; the change listener runs outside the lock.
type Controller struct {
	opts     Options
	renderer Renderer
	logger   *log.Logger
	onChange func(geometry.ViewportState)

	mu         sync.Mutex
	mode       models.Mode
	page       int
	aspect     float64
	container  geometry.Rect
	state      geometry.ViewportState
	zoomImage  models.ImageRef
	generation uint64
	selecting  bool
	drag       *Drag
	panning    bool
	panLast    geometry.PixelPoint
}

// NewController creates a controller with no slide displayed. onChange may
// be nil.
func NewController(renderer Renderer, opts Options, onChange func(geometry.ViewportState)) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		opts:     opts,
		renderer: renderer,
		logger:   logger,
		onChange: onChange,
		mode:     models.ModeUpload,
		page:     -1,
		state:    geometry.Identity,
	}
}

// State returns the committed viewport.
func (c *Controller) State() geometry.ViewportState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase returns the interaction phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.selecting:
		return PhaseRegionSelecting
	case c.panning:
		return PhasePanning
	case !c.state.IsIdentity():
		return PhaseZoomed
	}
	return PhaseIdle
}

// ZoomImage returns the zoom-specific render of the current page, or "" when
// the base image is shown.
func (c *Controller) ZoomImage() models.ImageRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoomImage
}

// Container returns the last container rectangle.
func (c *Controller) Container() geometry.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.container
}

// BaseFrame returns the unzoomed content frame.
func (c *Controller) BaseFrame() (geometry.ContentFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return geometry.ComputeContentFrame(c.container, c.aspect)
}

// LiveFrame returns the content frame as displayed with the current zoom
// and pan, in container coordinates.
func (c *Controller) LiveFrame() (geometry.ContentFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveFrameLocked()
}

func (c *Controller) liveFrameLocked() (geometry.ContentFrame, bool) {
	local := geometry.Rect{Width: c.container.Width, Height: c.container.Height}
	return geometry.LiveContentFrame(local, c.aspect, c.state)
}

// Selection returns the rectangle to draw for the active region gesture.
func (c *Controller) Selection() (geometry.Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selecting || c.drag == nil {
		return geometry.Rect{}, false
	}
	return geometry.RectFromPoints(c.drag.Start, c.drag.Current), true
}

// SetContainer records a new container size. Only the size is used; points
// passed to the controller are relative to the container origin.
func (c *Controller) SetContainer(r geometry.Rect) {
	c.mu.Lock()
	c.container = r
	c.mu.Unlock()
}

// SetMode records the presentation mode. Leaving presentation mode suspends
// region selection and drag panning.
func (c *Controller) SetMode(mode models.Mode) {
	c.mu.Lock()
	c.mode = mode
	if mode != models.ModePresentation {
		c.selecting = false
		c.drag = nil
		c.panning = false
	}
	c.mu.Unlock()
}

// SetPage displays page with the given intrinsic aspect ratio. It resets the
// viewport to identity and releases any zoom render without notifying; the
// caller announces the slide change itself. A negative page clears the view.
func (c *Controller) SetPage(page int, aspect float64) {
	c.mu.Lock()
	c.page = page
	c.aspect = aspect
	c.generation++
	old := c.zoomImage
	c.zoomImage = ""
	c.state = geometry.Identity
	c.selecting = false
	c.drag = nil
	c.panning = false
	c.mu.Unlock()

	c.release(old)
}

// ApplyZoom re-renders the current page at level, clamped to the zoom range,
// and commits the new viewport once the render is ready. The previous image
// stays current until then. On render failure the viewport is unchanged.
func (c *Controller) ApplyZoom(ctx context.Context, level float64, resetPan bool) error {
	c.mu.Lock()
	if err := c.zoomableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	target := c.state
	target.ZoomLevel = geometry.ClampZoom(level, c.opts.MinZoom, c.opts.MaxZoom)
	if resetPan {
		target.PanX, target.PanY = 0, 0
	}
	c.mu.Unlock()

	return c.renderAndCommit(ctx, target, !resetPan)
}

// ResetZoom drops the zoom render and restores the identity viewport.
func (c *Controller) ResetZoom() {
	c.mu.Lock()
	c.generation++
	old := c.zoomImage
	c.zoomImage = ""
	c.state = geometry.Identity
	c.panning = false
	state := c.state
	c.mu.Unlock()

	c.release(old)
	c.notify(state)
}

// BeginRegionSelect enters region selection. It reports false outside
// presentation mode or without a slide.
func (c *Controller) BeginRegionSelect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zoomableLocked() != nil {
		return false
	}
	c.selecting = true
	c.drag = nil
	c.panning = false
	return true
}

// Selecting reports whether region selection is active.
func (c *Controller) Selecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selecting
}

// StartDrag begins the region gesture at p (container pixels).
func (c *Controller) StartDrag(p geometry.PixelPoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selecting || c.drag != nil {
		return false
	}
	c.drag = &Drag{Start: p, Current: p}
	return true
}

// UpdateDrag moves the free corner of the region gesture.
func (c *Controller) UpdateDrag(p geometry.PixelPoint) {
	c.mu.Lock()
	if c.drag != nil {
		c.drag.Current = p
	}
	c.mu.Unlock()
}

// CancelRegionSelect leaves region selection without changing the viewport.
func (c *Controller) CancelRegionSelect() {
	c.mu.Lock()
	c.selecting = false
	c.drag = nil
	c.mu.Unlock()
}

// CommitRegionSelect ends the gesture and zooms to the selected region. The
// gesture is normalized against the image as currently displayed, so a
// selection made while already zoomed expresses a fraction of what is
// visible. Gestures below the minimum region size leave the viewport
// unchanged and report false.
func (c *Controller) CommitRegionSelect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	drag := c.drag
	wasSelecting := c.selecting
	c.selecting = false
	c.drag = nil
	if !wasSelecting || drag == nil {
		c.mu.Unlock()
		return false, nil
	}
	if err := c.zoomableLocked(); err != nil {
		c.mu.Unlock()
		return false, err
	}

	live, ok := c.liveFrameLocked()
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	start, _ := geometry.ClampedPixelToNormalized(drag.Start, live)
	end, _ := geometry.ClampedPixelToNormalized(drag.Current, live)
	region := geometry.Region{X0: start.X, Y0: start.Y, X1: end.X, Y1: end.Y}

	base, ok := geometry.ComputeContentFrame(geometry.Rect{Width: c.container.Width, Height: c.container.Height}, c.aspect)
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	target, ok := geometry.RegionToZoomPan(region, base, c.opts.MinRegion, c.opts.RegionMinZoom, c.opts.MaxZoom)
	c.mu.Unlock()
	if !ok {
		return false, nil
	}

	if err := c.renderAndCommit(ctx, target, false); err != nil {
		return false, err
	}
	return true, nil
}

// PanStep moves the view by one keyboard step. It only applies while zoomed
// in past 100%.
func (c *Controller) PanStep(dir Direction) bool {
	c.mu.Lock()
	if c.mode != models.ModePresentation || c.state.ZoomLevel <= 1 {
		c.mu.Unlock()
		return false
	}
	step := c.opts.PanStep
	switch dir {
	case PanLeft:
		c.state.PanX -= step
	case PanRight:
		c.state.PanX += step
	case PanUp:
		c.state.PanY -= step
	case PanDown:
		c.state.PanY += step
	default:
		c.mu.Unlock()
		return false
	}
	state := c.state
	c.mu.Unlock()

	c.notify(state)
	return true
}

// BeginDragPan starts panning with the secondary pointer button at p.
func (c *Controller) BeginDragPan(p geometry.PixelPoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != models.ModePresentation || c.state.ZoomLevel <= 1 || c.selecting {
		return false
	}
	c.panning = true
	c.panLast = p
	return true
}

// DragPanTo accumulates the pointer delta since the last move into the pan.
func (c *Controller) DragPanTo(p geometry.PixelPoint) bool {
	c.mu.Lock()
	if !c.panning {
		c.mu.Unlock()
		return false
	}
	c.state.PanX += p.X - c.panLast.X
	c.state.PanY += p.Y - c.panLast.Y
	c.panLast = p
	state := c.state
	c.mu.Unlock()

	c.notify(state)
	return true
}

// EndDragPan releases the pan button.
func (c *Controller) EndDragPan() {
	c.mu.Lock()
	c.panning = false
	c.mu.Unlock()
}

// Wheel zooms by one step per tick when the modifier is held. Scrolling
// down (positive deltaY) zooms out. Pan is preserved.
func (c *Controller) Wheel(ctx context.Context, deltaY float64, modifier bool) error {
	if !modifier || deltaY == 0 {
		return nil
	}
	c.mu.Lock()
	if c.mode != models.ModePresentation || c.selecting {
		c.mu.Unlock()
		return nil
	}
	delta := c.opts.WheelStep
	if deltaY > 0 {
		delta = -delta
	}
	level := geometry.ClampZoom(c.state.ZoomLevel+delta, c.opts.MinZoom, c.opts.MaxZoom)
	c.mu.Unlock()

	return c.ApplyZoom(ctx, level, false)
}

func (c *Controller) zoomableLocked() error {
	if c.page < 0 {
		return ErrNoSlide
	}
	if c.mode != models.ModePresentation {
		return ErrNotPresenting
	}
	return nil
}

// renderAndCommit renders the current page at target's zoom and commits
// target unless the render was superseded meanwhile. With keepPan the pan
// committed is the one current at commit time, so pans made during the
// render survive.
func (c *Controller) renderAndCommit(ctx context.Context, target geometry.ViewportState, keepPan bool) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	page := c.page
	c.mu.Unlock()

	ref, err := c.renderer.RenderPageAtZoom(ctx, page, target.ZoomLevel)
	if err != nil {
		c.logger.Printf("Failed to apply zoom %.2f on page %d: %v", target.ZoomLevel, page+1, err)
		return fmt.Errorf("failed to render page %d at zoom %.2f: %w", page+1, target.ZoomLevel, err)
	}

	c.mu.Lock()
	if gen != c.generation || page != c.page {
		c.mu.Unlock()
		c.release(ref)
		return ErrSuperseded
	}
	if keepPan {
		target.PanX, target.PanY = c.state.PanX, c.state.PanY
	}
	old := c.zoomImage
	c.zoomImage = ref
	c.state = target
	c.mu.Unlock()

	c.release(old)
	c.notify(target)
	return nil
}

func (c *Controller) release(ref models.ImageRef) {
	if ref != "" && c.renderer != nil {
		c.renderer.Release(ref)
	}
}

func (c *Controller) notify(state geometry.ViewportState) {
	if c.onChange != nil {
		c.onChange(state)
	}
}
