package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/services"
)

// PreferencesHandler handles HTTP requests for presenter preferences
type PreferencesHandler struct {
	service *services.PreferencesService
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(service *services.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{
		service: service,
	}
}

// UpdatePreferencesRequest replaces the stored preferences
type UpdatePreferencesRequest struct {
	NotesFontSize       int  `json:"notesFontSize"`
	ReadingGuideEnabled bool `json:"readingGuideEnabled"`
}

// GetPreferences returns the stored preferences
// GET /api/preferences
func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.Get()
	if err != nil {
		log.Printf("Failed to load preferences: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, prefs)
}

// UpdatePreferences stores new preferences
// PUT /api/preferences
func (h *PreferencesHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.NotesFontSize == 0 {
		req.NotesFontSize = models.DefaultNotesFontSize
	}

	prefs, err := h.service.Update(models.Preferences{
		NotesFontSize:       req.NotesFontSize,
		ReadingGuideEnabled: req.ReadingGuideEnabled,
	})
	if err != nil {
		log.Printf("Failed to save preferences: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, prefs)
}

// AdjustFontSize grows or shrinks the speaker notes font by one point
// POST /api/preferences/font/{direction}
func (h *PreferencesHandler) AdjustFontSize(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var delta int
	switch vars["direction"] {
	case "increase":
		delta = 1
	case "decrease":
		delta = -1
	default:
		http.Error(w, "direction must be increase or decrease", http.StatusBadRequest)
		return
	}

	prefs, err := h.service.AdjustFontSize(delta)
	if err != nil {
		log.Printf("Failed to adjust font size: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, prefs)
}

// ToggleReadingGuide flips the reading guide
// POST /api/preferences/reading-guide
func (h *PreferencesHandler) ToggleReadingGuide(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.ToggleReadingGuide()
	if err != nil {
		log.Printf("Failed to toggle reading guide: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, prefs)
}
