// Package session holds the presentation state of the primary display and
// the mirrored receiver, and keeps the two in step over a protocol port.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/overlay"
	"github.com/WebPressive/webpressive.github.io/internal/protocol"
	"github.com/WebPressive/webpressive.github.io/internal/render"
	"github.com/WebPressive/webpressive.github.io/internal/viewport"
)

var (
	// ErrNoSuchSlide is returned for a slide index outside the deck.
	ErrNoSuchSlide = errors.New("no such slide")
	// ErrEmptyDeck is returned when loading a deck without slides.
	ErrEmptyDeck = errors.New("deck has no slides")
	// ErrNotOverview is returned when confirming outside overview mode.
	ErrNotOverview = errors.New("not in overview mode")
)

// OverviewColumns is the width of the overview grid.
const OverviewColumns = 4

// Deck is a loaded document: its slides plus on-demand zoom renders.
type Deck interface {
	viewport.Renderer
	Slides() []models.SlideRecord
	Close()
}

// Options tunes a Presenter.
type Options struct {
	Viewport         viewport.Options
	LivenessInterval time.Duration
	FrameInterval    time.Duration
	SpotlightRadius  float64
	Logger           *log.Logger
	Now              func() time.Time
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		Viewport:         viewport.DefaultOptions(),
		LivenessInterval: DefaultLivenessInterval,
		FrameInterval:    overlay.DefaultFrameInterval,
		SpotlightRadius:  overlay.DefaultSpotlightRadius,
	}
}

// Direction moves the overview highlight.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// EscapeResult says what an Escape press dismissed.
type EscapeResult string

const (
	EscapeNone      EscapeResult = ""
	EscapeOverview  EscapeResult = "overview"
	EscapeSpotlight EscapeResult = "spotlight"
	EscapePointer   EscapeResult = "pointer"
	EscapeRegion    EscapeResult = "region"
)

// LinkResult is the outcome of clicking a link.
type LinkResult struct {
	URL  string `json:"url,omitempty"`
	Page *int   `json:"page,omitempty"`
}

// Snapshot is the presenter state exposed to UI chrome.
type Snapshot struct {
	Mode         models.Mode               `json:"mode"`
	Index        int                       `json:"index"`
	SlideCount   int                       `json:"slideCount"`
	Slide        *models.SlideRecord       `json:"slide,omitempty"`
	Highlight    int                       `json:"highlight"`
	SpotlightOn  bool                      `json:"spotlightOn"`
	SpotlightPos *geometry.NormalizedPoint `json:"spotlightPos"`
	PointerOn    bool                      `json:"pointerOn"`
	PointerPos   *geometry.NormalizedPoint `json:"pointerPos"`
	Spotlight    overlay.Placement         `json:"spotlight"`
	Pointer      overlay.Placement         `json:"pointer"`
	Viewport     geometry.ViewportState    `json:"viewport"`
	Phase        string                    `json:"phase"`
	Frame        *geometry.ContentFrame    `json:"frame,omitempty"`
	Selection    *geometry.Rect            `json:"selection,omitempty"`
	ZoomImage    models.ImageRef           `json:"zoomImage,omitempty"`
	DualScreen   bool                      `json:"dualScreen"`
	StartTime    *int64                    `json:"startTime"`
	ElapsedMS    int64                     `json:"elapsedMs"`
	TimerPaused  bool                      `json:"timerPaused"`
}

// Presenter is the primary display. It owns the slide deck and answers
// receivers on its port.
type Presenter struct {
	opts     Options
	logger   *log.Logger
	now      func() time.Time
	port     protocol.Port
	store    *render.ImageStore
	renderer *deckRenderer
	view     *viewport.Controller
	spot     *overlay.Tracker
	pointer  *overlay.Tracker

	ctx    context.Context
	cancel context.CancelFunc

	// sendMu orders outgoing frames; it is taken before mu.
	sendMu sync.Mutex

	mu           sync.Mutex
	deck         Deck
	slides       []models.SlideRecord
	index        int
	mode         models.Mode
	highlight    int
	spotlightOn  bool
	spotlightPos *geometry.NormalizedPoint
	pointerOn    bool
	pointerPos   *geometry.NormalizedPoint
	dualScreen   bool
	watcher      *Watcher
	watchGen     uint64
	timer        Timer
}

// NewPresenter creates a presenter in upload mode. store must hold the
// images of every deck later passed to Load.
func NewPresenter(port protocol.Port, store *render.ImageStore, opts Options) *Presenter {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Viewport.Logger == nil {
		opts.Viewport.Logger = logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Presenter{
		opts:     opts,
		logger:   logger,
		now:      now,
		port:     port,
		store:    store,
		renderer: &deckRenderer{},
		ctx:      ctx,
		cancel:   cancel,
		mode:     models.ModeUpload,
	}
	p.view = viewport.NewController(p.renderer, opts.Viewport, func(geometry.ViewportState) { p.broadcast() })
	p.spot = overlay.NewSpotlightTracker(p.view, p.spotlightSource, overlay.Spotlight{Radius: opts.SpotlightRadius}, opts.FrameInterval)
	p.pointer = overlay.NewPointerTracker(p.view, p.pointerSource, opts.FrameInterval)
	return p
}

// View returns the viewport controller. Committed changes made through it
// are broadcast.
func (p *Presenter) View() *viewport.Controller {
	return p.view
}

// Store returns the image store backing the slides.
func (p *Presenter) Store() *render.ImageStore {
	return p.store
}

// Load replaces the deck and starts presenting from the first slide.
func (p *Presenter) Load(deck Deck) error {
	slides := deck.Slides()
	if len(slides) == 0 {
		return ErrEmptyDeck
	}

	p.mu.Lock()
	old := p.deck
	p.deck = deck
	p.renderer.set(deck)
	p.slides = slides
	p.mode = models.ModePresentation
	p.highlight = 0
	p.clearOverlaysLocked()
	p.timer.Start(p.now())
	p.view.SetMode(models.ModePresentation)
	p.showLocked(0)
	p.mu.Unlock()

	if old != nil && old != deck {
		old.Close()
	}
	p.logger.Printf("Loaded deck with %d slides", len(slides))
	p.broadcast()
	return nil
}

// Reset returns to upload mode and releases the deck.
func (p *Presenter) Reset() {
	p.mu.Lock()
	old := p.deck
	p.deck = nil
	p.slides = nil
	p.index = 0
	p.highlight = 0
	p.mode = models.ModeUpload
	p.clearOverlaysLocked()
	p.timer.Stop()
	p.view.SetMode(models.ModeUpload)
	p.view.SetPage(-1, 0)
	p.renderer.set(nil)
	p.mu.Unlock()

	p.spot.Stop()
	p.pointer.Stop()
	if old != nil {
		old.Close()
	}
}

// Close stops background work and detaches any receiver.
func (p *Presenter) Close() {
	p.DetachReceiver()
	p.cancel()
	p.spot.Stop()
	p.pointer.Stop()
}

// Slides returns the loaded slides.
func (p *Presenter) Slides() []models.SlideRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SlideRecord, len(p.slides))
	copy(out, p.slides)
	return out
}

// SetContainer records the size of the slide area.
func (p *Presenter) SetContainer(r geometry.Rect) {
	p.view.SetContainer(r)
}

// Next advances one slide, stopping at the last.
func (p *Presenter) Next() bool {
	return p.step(1)
}

// Prev goes back one slide, stopping at the first.
func (p *Presenter) Prev() bool {
	return p.step(-1)
}

func (p *Presenter) step(delta int) bool {
	p.mu.Lock()
	if p.mode != models.ModePresentation || len(p.slides) == 0 {
		p.mu.Unlock()
		return false
	}
	idx := min(max(p.index+delta, 0), len(p.slides)-1)
	p.showLocked(idx)
	p.mu.Unlock()

	p.broadcast()
	return true
}

// Select shows slide i and returns to presentation mode.
func (p *Presenter) Select(i int) error {
	p.mu.Lock()
	if p.mode == models.ModeUpload {
		p.mu.Unlock()
		return viewport.ErrNotPresenting
	}
	if i < 0 || i >= len(p.slides) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchSlide, i)
	}
	p.mode = models.ModePresentation
	p.view.SetMode(models.ModePresentation)
	p.showLocked(i)
	p.mu.Unlock()

	p.broadcast()
	return nil
}

// ToggleOverview switches between presentation and the slide grid. The
// spotlight is switched off either way.
func (p *Presenter) ToggleOverview() bool {
	p.mu.Lock()
	switch p.mode {
	case models.ModePresentation:
		p.mode = models.ModeOverview
		p.highlight = p.index
	case models.ModeOverview:
		p.mode = models.ModePresentation
	default:
		p.mu.Unlock()
		return false
	}
	p.spotlightOn = false
	p.spotlightPos = nil
	p.pointerPos = nil
	p.view.SetMode(p.mode)
	p.mu.Unlock()

	p.broadcast()
	return true
}

// MoveHighlight moves the overview highlight across the grid and returns
// its new index.
func (p *Presenter) MoveHighlight(dir Direction) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != models.ModeOverview || len(p.slides) == 0 {
		return p.highlight, false
	}
	h := p.highlight
	switch dir {
	case Left:
		h--
	case Right:
		h++
	case Up:
		h -= OverviewColumns
	case Down:
		h += OverviewColumns
	}
	p.highlight = min(max(h, 0), len(p.slides)-1)
	return p.highlight, true
}

// ConfirmHighlight presents the highlighted slide.
func (p *Presenter) ConfirmHighlight() error {
	p.mu.Lock()
	if p.mode != models.ModeOverview {
		p.mu.Unlock()
		return ErrNotOverview
	}
	h := p.highlight
	p.mu.Unlock()
	return p.Select(h)
}

// ToggleSpotlight switches the spotlight; turning it on turns the pointer
// off.
func (p *Presenter) ToggleSpotlight() bool {
	p.mu.Lock()
	if p.mode != models.ModePresentation {
		p.mu.Unlock()
		return false
	}
	p.spotlightOn = !p.spotlightOn
	p.spotlightPos = nil
	if p.spotlightOn {
		p.pointerOn = false
		p.pointerPos = nil
	}
	on := p.spotlightOn
	p.mu.Unlock()

	if on {
		p.spot.Activate(p.ctx)
	}
	p.broadcast()
	return on
}

// TogglePointer switches the pointer; turning it on turns the spotlight
// off.
func (p *Presenter) TogglePointer() bool {
	p.mu.Lock()
	if p.mode != models.ModePresentation {
		p.mu.Unlock()
		return false
	}
	p.pointerOn = !p.pointerOn
	p.pointerPos = nil
	if p.pointerOn {
		p.spotlightOn = false
		p.spotlightPos = nil
	}
	on := p.pointerOn
	p.mu.Unlock()

	if on {
		p.pointer.Activate(p.ctx)
	}
	p.broadcast()
	return on
}

// PointerMoved updates the active overlay from a pointer position in
// container pixels. Positions outside the displayed content hide it.
func (p *Presenter) PointerMoved(at geometry.PixelPoint) {
	if p.view.Selecting() {
		return
	}
	frame, frameOK := p.view.LiveFrame()

	p.mu.Lock()
	if p.mode != models.ModePresentation || (!p.spotlightOn && !p.pointerOn) {
		p.mu.Unlock()
		return
	}
	var pos *geometry.NormalizedPoint
	if frameOK {
		if n, ok := geometry.PixelToNormalized(at, frame); ok {
			pos = &n
		}
	}
	if p.spotlightOn {
		p.spotlightPos = pos
	}
	if p.pointerOn {
		p.pointerPos = pos
	}
	spot, pointer := p.spotlightOn, p.pointerOn
	p.mu.Unlock()

	if spot && !p.spot.Running() {
		p.spot.Activate(p.ctx)
	}
	if pointer && !p.pointer.Running() {
		p.pointer.Activate(p.ctx)
	}
	p.broadcast()
}

// Escape dismisses the innermost active state: overview, then spotlight,
// then pointer, then region selection.
func (p *Presenter) Escape() EscapeResult {
	p.mu.Lock()
	var res EscapeResult
	switch {
	case p.mode == models.ModeOverview:
		p.mode = models.ModePresentation
		p.view.SetMode(p.mode)
		res = EscapeOverview
	case p.spotlightOn:
		p.spotlightOn = false
		p.spotlightPos = nil
		res = EscapeSpotlight
	case p.pointerOn:
		p.pointerOn = false
		p.pointerPos = nil
		res = EscapePointer
	case p.view.Selecting():
		p.view.CancelRegionSelect()
		res = EscapeRegion
	}
	p.mu.Unlock()

	if res != EscapeNone && res != EscapeRegion {
		p.broadcast()
	}
	return res
}

// PresetZoom applies a fixed zoom level and re-centers the slide.
func (p *Presenter) PresetZoom(ctx context.Context, level float64) error {
	return p.view.ApplyZoom(ctx, level, true)
}

// ResetZoom restores the unzoomed view in presentation mode.
func (p *Presenter) ResetZoom() bool {
	p.mu.Lock()
	ok := p.mode == models.ModePresentation
	p.mu.Unlock()
	if ok {
		p.view.ResetZoom()
	}
	return ok
}

// ZoomToRegion runs a complete region gesture from one container point to
// another.
func (p *Presenter) ZoomToRegion(ctx context.Context, from, to geometry.PixelPoint) (bool, error) {
	if !p.view.BeginRegionSelect() {
		return false, viewport.ErrNotPresenting
	}
	p.view.StartDrag(from)
	p.view.UpdateDrag(to)
	return p.view.CommitRegionSelect(ctx)
}

// PauseToggle pauses or resumes the timer.
func (p *Presenter) PauseToggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != models.ModePresentation {
		return false
	}
	return p.timer.TogglePause(p.now())
}

// ResetTimer restarts the timer from zero.
func (p *Presenter) ResetTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != models.ModeUpload {
		p.timer.Start(p.now())
	}
}

// Elapsed returns presentation time excluding pauses.
func (p *Presenter) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer.Elapsed(p.now())
}

// Links lays out the link targets of the current slide. Links are inert
// while the spotlight, pointer or region selection is active.
func (p *Presenter) Links() overlay.Layout {
	selecting := p.view.Selecting()
	base, _ := p.view.BaseFrame()
	state := p.view.State()
	c := p.view.Container()

	p.mu.Lock()
	defer p.mu.Unlock()
	var links []models.LinkRegion
	if p.index < len(p.slides) {
		links = p.slides[p.index].Links
	}
	enabled := p.mode == models.ModePresentation && !p.spotlightOn && !p.pointerOn && !selecting
	local := geometry.Rect{Width: c.Width, Height: c.Height}
	return overlay.LinkLayer{Enabled: enabled}.Layout(links, base, state, local)
}

// ClickLink activates the link under a container point. External links
// are returned for the caller to open; internal links navigate.
func (p *Presenter) ClickLink(at geometry.PixelPoint) (LinkResult, bool, error) {
	link, ok := p.Links().HitTest(at)
	if !ok {
		return LinkResult{}, false, nil
	}
	if link.URL != "" {
		return LinkResult{URL: link.URL}, true, nil
	}
	dest := *link.Dest
	if err := p.Select(dest); err != nil {
		p.logger.Printf("Failed to follow link to page %d: %v", dest+1, err)
		return LinkResult{}, false, err
	}
	return LinkResult{Page: &dest}, true, nil
}

// AttachReceiver marks dual-screen mode active until handle reports closed
// or DetachReceiver is called.
func (p *Presenter) AttachReceiver(handle Liveness) {
	p.mu.Lock()
	old := p.watcher
	p.watchGen++
	gen := p.watchGen
	p.watcher = Watch(handle, p.opts.LivenessInterval, func() { p.receiverClosed(gen) })
	p.dualScreen = true
	p.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	p.logger.Printf("Receiver attached")
}

// DetachReceiver leaves dual-screen mode.
func (p *Presenter) DetachReceiver() {
	p.mu.Lock()
	w := p.watcher
	p.watcher = nil
	p.dualScreen = false
	p.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

// DualScreen reports whether a receiver is attached.
func (p *Presenter) DualScreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dualScreen
}

func (p *Presenter) receiverClosed(gen uint64) {
	p.mu.Lock()
	if p.watchGen != gen || p.watcher == nil {
		p.mu.Unlock()
		return
	}
	p.watcher = nil
	p.dualScreen = false
	p.mu.Unlock()
	p.logger.Printf("Receiver closed, leaving dual-screen mode")
}

// Run answers frames arriving on the port until ctx is done or the port
// closes.
func (p *Presenter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-p.port.Frames():
			if !ok {
				return protocol.ErrClosed
			}
			if err := p.HandleFrame(ctx, frame); err != nil {
				p.logger.Printf("Failed to handle frame: %v", err)
			}
		}
	}
}

// HandleFrame processes one incoming frame. Every SYNC_REQUEST is answered
// with SYNC_INIT followed by a STATE_UPDATE of the current state.
func (p *Presenter) HandleFrame(ctx context.Context, frame []byte) error {
	msg, err := protocol.Decode(frame)
	if err != nil {
		return err
	}
	if _, ok := msg.(protocol.SyncRequest); !ok {
		return nil
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	slides := make([]models.SlideRecord, len(p.slides))
	copy(slides, p.slides)
	start := p.timer.StartTime()
	update := p.stateUpdateLocked()
	p.mu.Unlock()

	wire, err := protocol.WireSlides(slides, p.store)
	if err != nil {
		return fmt.Errorf("failed to build sync snapshot: %w", err)
	}
	if err := protocol.Post(ctx, p.port, protocol.SyncInit{Slides: wire, StartTime: start}); err != nil {
		return fmt.Errorf("failed to send sync init: %w", err)
	}
	if err := protocol.Post(ctx, p.port, update); err != nil {
		return fmt.Errorf("failed to send state update: %w", err)
	}
	return nil
}

// Snapshot returns the state for UI chrome.
func (p *Presenter) Snapshot() Snapshot {
	phase := p.view.Phase()
	frame, frameOK := p.view.LiveFrame()
	sel, selOK := p.view.Selection()
	zoomImage := p.view.ZoomImage()
	spot, pointer := p.spot.Latest(), p.pointer.Latest()

	p.mu.Lock()
	defer p.mu.Unlock()
	s := Snapshot{
		Mode:         p.mode,
		Index:        p.index,
		SlideCount:   len(p.slides),
		Highlight:    p.highlight,
		SpotlightOn:  p.spotlightOn,
		SpotlightPos: clonePoint(p.spotlightPos),
		PointerOn:    p.pointerOn,
		PointerPos:   clonePoint(p.pointerPos),
		Spotlight:    spot,
		Pointer:      pointer,
		Viewport:     p.view.State(),
		Phase:        phase.String(),
		ZoomImage:    zoomImage,
		DualScreen:   p.dualScreen,
		StartTime:    p.timer.StartTime(),
		ElapsedMS:    p.timer.Elapsed(p.now()).Milliseconds(),
		TimerPaused:  p.timer.Paused(),
	}
	if p.index < len(p.slides) {
		slide := p.slides[p.index]
		s.Slide = &slide
	}
	if frameOK {
		s.Frame = &frame
	}
	if selOK {
		s.Selection = &sel
	}
	if !p.spotlightOn {
		s.Spotlight = overlay.Placement{}
	}
	if !p.pointerOn {
		s.Pointer = overlay.Placement{}
	}
	return s
}

func (p *Presenter) broadcast() {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	if p.mode == models.ModeUpload {
		p.mu.Unlock()
		return
	}
	update := p.stateUpdateLocked()
	p.mu.Unlock()

	if err := protocol.Post(p.ctx, p.port, update); err != nil {
		p.logger.Printf("Failed to broadcast state: %v", err)
	}
}

func (p *Presenter) stateUpdateLocked() protocol.StateUpdate {
	return protocol.StateUpdate{
		Index:        p.index,
		Mode:         p.mode,
		SpotlightOn:  p.spotlightOn,
		SpotlightPos: clonePoint(p.spotlightPos),
		PointerOn:    p.pointerOn,
		PointerPos:   clonePoint(p.pointerPos),
		Viewport:     p.view.State(),
	}
}

// showLocked displays slide i and resets the viewport.
func (p *Presenter) showLocked(i int) {
	p.index = i
	p.view.SetPage(i, p.slides[i].Aspect())
}

func (p *Presenter) clearOverlaysLocked() {
	p.spotlightOn = false
	p.spotlightPos = nil
	p.pointerOn = false
	p.pointerPos = nil
}

func (p *Presenter) spotlightSource() (*geometry.NormalizedPoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clonePoint(p.spotlightPos), p.spotlightOn && p.mode == models.ModePresentation
}

func (p *Presenter) pointerSource() (*geometry.NormalizedPoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clonePoint(p.pointerPos), p.pointerOn && p.mode == models.ModePresentation
}

func clonePoint(pt *geometry.NormalizedPoint) *geometry.NormalizedPoint {
	if pt == nil {
		return nil
	}
	c := *pt
	return &c
}

// deckRenderer forwards zoom renders to whichever deck is loaded.
type deckRenderer struct {
	mu   sync.RWMutex
	deck Deck
}

func (r *deckRenderer) set(d Deck) {
	r.mu.Lock()
	r.deck = d
	r.mu.Unlock()
}

func (r *deckRenderer) RenderPageAtZoom(ctx context.Context, page int, zoom float64) (models.ImageRef, error) {
	r.mu.RLock()
	d := r.deck
	r.mu.RUnlock()
	if d == nil {
		return "", viewport.ErrNoSlide
	}
	return d.RenderPageAtZoom(ctx, page, zoom)
}

func (r *deckRenderer) Release(ref models.ImageRef) {
	r.mu.RLock()
	d := r.deck
	r.mu.RUnlock()
	if d != nil {
		d.Release(ref)
	}
}
