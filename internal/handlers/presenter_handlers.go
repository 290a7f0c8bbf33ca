package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/overlay"
	"github.com/WebPressive/webpressive.github.io/internal/session"
	"github.com/WebPressive/webpressive.github.io/internal/viewport"
)

// DeckSource produces the deck to present.
type DeckSource func() (session.Deck, error)

// PresenterHandler exposes the presenter controls over HTTP
type PresenterHandler struct {
	presenter *session.Presenter
	source    DeckSource
}

// NewPresenterHandler creates a new presenter handler
func NewPresenterHandler(presenter *session.Presenter, source DeckSource) *PresenterHandler {
	return &PresenterHandler{
		presenter: presenter,
		source:    source,
	}
}

// StateResponse is returned by every control endpoint
type StateResponse struct {
	Success bool             `json:"success"`
	State   session.Snapshot `json:"state"`
}

// PointRequest is a position in slide-area pixels
type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p PointRequest) pixel() geometry.PixelPoint {
	return geometry.PixelPoint{X: p.X, Y: p.Y}
}

// DirectionRequest names a direction: left, right, up or down
type DirectionRequest struct {
	Direction string `json:"direction"`
}

// ContainerRequest is the size of the slide area
type ContainerRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ZoomRequest sets an absolute zoom level
type ZoomRequest struct {
	Level float64 `json:"level"`
}

// WheelRequest is one wheel event
type WheelRequest struct {
	DeltaY   float64 `json:"deltaY"`
	Modifier bool    `json:"modifier"`
}

// GestureRequest is a drag from one point to another
type GestureRequest struct {
	From PointRequest `json:"from"`
	To   PointRequest `json:"to"`
}

// RegionResponse reports whether a region zoom was applied
type RegionResponse struct {
	Applied bool             `json:"applied"`
	State   session.Snapshot `json:"state"`
}

// EscapeResponse names what Escape dismissed
type EscapeResponse struct {
	Dismissed session.EscapeResult `json:"dismissed"`
	State     session.Snapshot     `json:"state"`
}

// LinksResponse lists link boxes in slide-area pixels as displayed
type LinksResponse struct {
	Enabled bool              `json:"enabled"`
	Links   []overlay.LinkBox `json:"links"`
}

// LinkClickResponse is the outcome of a link click
type LinkClickResponse struct {
	Hit  bool   `json:"hit"`
	URL  string `json:"url,omitempty"`
	Page *int   `json:"page,omitempty"`
}

func (h *PresenterHandler) writeState(w http.ResponseWriter, success bool) {
	writeJSON(w, StateResponse{Success: success, State: h.presenter.Snapshot()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// zoomError maps viewport errors to HTTP statuses
func zoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, viewport.ErrNoSlide), errors.Is(err, viewport.ErrNotPresenting), errors.Is(err, viewport.ErrSuperseded):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("Failed to zoom: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetState returns the presenter state
// GET /api/state
func (h *PresenterHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.presenter.Snapshot())
}

// ReloadDeck loads the configured deck and starts presenting it
// POST /api/deck/reload
func (h *PresenterHandler) ReloadDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := h.source()
	if err != nil {
		log.Printf("Failed to load deck: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.presenter.Load(deck); err != nil {
		deck.Close()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	h.writeState(w, true)
}

// ResetDeck unloads the deck and returns to upload mode
// POST /api/deck/reset
func (h *PresenterHandler) ResetDeck(w http.ResponseWriter, r *http.Request) {
	h.presenter.Reset()
	h.writeState(w, true)
}

// NextSlide advances one slide
// POST /api/slides/next
func (h *PresenterHandler) NextSlide(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, h.presenter.Next())
}

// PrevSlide goes back one slide
// POST /api/slides/prev
func (h *PresenterHandler) PrevSlide(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, h.presenter.Prev())
}

// SelectSlide jumps to a 0-indexed slide
// POST /api/slides/{index}
func (h *PresenterHandler) SelectSlide(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "Invalid slide index", http.StatusBadRequest)
		return
	}

	if err := h.presenter.Select(index); err != nil {
		switch {
		case errors.Is(err, session.ErrNoSuchSlide):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusConflict)
		}
		return
	}
	h.writeState(w, true)
}

// ToggleOverview switches between the slide and the overview grid
// POST /api/overview
func (h *PresenterHandler) ToggleOverview(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, h.presenter.ToggleOverview())
}

// MoveHighlight moves the overview highlight
// POST /api/overview/move
func (h *PresenterHandler) MoveHighlight(w http.ResponseWriter, r *http.Request) {
	var req DirectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	dir, ok := overviewDirections[req.Direction]
	if !ok {
		http.Error(w, "direction must be left, right, up or down", http.StatusBadRequest)
		return
	}

	_, moved := h.presenter.MoveHighlight(dir)
	h.writeState(w, moved)
}

// ConfirmHighlight presents the highlighted slide
// POST /api/overview/confirm
func (h *PresenterHandler) ConfirmHighlight(w http.ResponseWriter, r *http.Request) {
	if err := h.presenter.ConfirmHighlight(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, true)
}

// ToggleSpotlight switches the spotlight
// POST /api/spotlight
func (h *PresenterHandler) ToggleSpotlight(w http.ResponseWriter, r *http.Request) {
	h.presenter.ToggleSpotlight()
	h.writeState(w, true)
}

// TogglePointer switches the laser pointer
// POST /api/pointer
func (h *PresenterHandler) TogglePointer(w http.ResponseWriter, r *http.Request) {
	h.presenter.TogglePointer()
	h.writeState(w, true)
}

// MovePointer reports the mouse position in slide-area pixels
// POST /api/pointer/move
func (h *PresenterHandler) MovePointer(w http.ResponseWriter, r *http.Request) {
	var req PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	h.presenter.PointerMoved(req.pixel())
	h.writeState(w, true)
}

// Escape dismisses the innermost active state
// POST /api/escape
func (h *PresenterHandler) Escape(w http.ResponseWriter, r *http.Request) {
	res := h.presenter.Escape()
	writeJSON(w, EscapeResponse{Dismissed: res, State: h.presenter.Snapshot()})
}

// SetContainer records the slide area size
// POST /api/container
func (h *PresenterHandler) SetContainer(w http.ResponseWriter, r *http.Request) {
	var req ContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Width < 0 || req.Height < 0 {
		http.Error(w, "width and height must not be negative", http.StatusBadRequest)
		return
	}
	h.presenter.SetContainer(geometry.Rect{Width: req.Width, Height: req.Height})
	h.writeState(w, true)
}

// Zoom applies a preset zoom level and re-centers the slide
// POST /api/zoom
func (h *PresenterHandler) Zoom(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !(req.Level > 0) {
		http.Error(w, "level must be positive", http.StatusBadRequest)
		return
	}
	if err := h.presenter.PresetZoom(r.Context(), req.Level); err != nil {
		zoomError(w, err)
		return
	}
	h.writeState(w, true)
}

// ResetZoom restores the unzoomed view
// POST /api/zoom/reset
func (h *PresenterHandler) ResetZoom(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, h.presenter.ResetZoom())
}

// Wheel applies a wheel event
// POST /api/zoom/wheel
func (h *PresenterHandler) Wheel(w http.ResponseWriter, r *http.Request) {
	var req WheelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.presenter.View().Wheel(r.Context(), req.DeltaY, req.Modifier); err != nil {
		zoomError(w, err)
		return
	}
	h.writeState(w, true)
}

// PanStep pans the zoomed slide by one keyboard step
// POST /api/pan/step
func (h *PresenterHandler) PanStep(w http.ResponseWriter, r *http.Request) {
	var req DirectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	dir, ok := panDirections[req.Direction]
	if !ok {
		http.Error(w, "direction must be left, right, up or down", http.StatusBadRequest)
		return
	}
	h.writeState(w, h.presenter.View().PanStep(dir))
}

// DragPan pans the zoomed slide by a mouse drag
// POST /api/pan/drag
func (h *PresenterHandler) DragPan(w http.ResponseWriter, r *http.Request) {
	var req GestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	view := h.presenter.View()
	if !view.BeginDragPan(req.From.pixel()) {
		h.writeState(w, false)
		return
	}
	moved := view.DragPanTo(req.To.pixel())
	view.EndDragPan()
	h.writeState(w, moved)
}

// ZoomToRegion zooms to the rectangle dragged between two points
// POST /api/region
func (h *PresenterHandler) ZoomToRegion(w http.ResponseWriter, r *http.Request) {
	var req GestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	applied, err := h.presenter.ZoomToRegion(r.Context(), req.From.pixel(), req.To.pixel())
	if err != nil {
		zoomError(w, err)
		return
	}
	writeJSON(w, RegionResponse{Applied: applied, State: h.presenter.Snapshot()})
}

// PauseTimer pauses or resumes the presentation timer
// POST /api/timer/pause
func (h *PresenterHandler) PauseTimer(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, h.presenter.PauseToggle())
}

// ResetTimer restarts the presentation timer
// POST /api/timer/reset
func (h *PresenterHandler) ResetTimer(w http.ResponseWriter, r *http.Request) {
	h.presenter.ResetTimer()
	h.writeState(w, true)
}

// GetLinks returns the link boxes of the current slide
// GET /api/links
func (h *PresenterHandler) GetLinks(w http.ResponseWriter, r *http.Request) {
	layout := h.presenter.Links()
	live := layout.LiveBoxes()
	resp := LinksResponse{Enabled: layout.Enabled, Links: make([]overlay.LinkBox, len(live))}
	for i, box := range live {
		resp.Links[i] = overlay.LinkBox{Link: layout.Boxes[i].Link, Box: box}
	}
	writeJSON(w, resp)
}

// ClickLink follows the link under a point
// POST /api/links/click
func (h *PresenterHandler) ClickLink(w http.ResponseWriter, r *http.Request) {
	var req PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	res, hit, err := h.presenter.ClickLink(req.pixel())
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, LinkClickResponse{Hit: hit, URL: res.URL, Page: res.Page})
}

var overviewDirections = map[string]session.Direction{
	"left":  session.Left,
	"right": session.Right,
	"up":    session.Up,
	"down":  session.Down,
}

var panDirections = map[string]viewport.Direction{
	"left":  viewport.PanLeft,
	"right": viewport.PanRight,
	"up":    viewport.PanUp,
	"down":  viewport.PanDown,
}
