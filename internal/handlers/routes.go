package handlers

import (
	"github.com/gorilla/mux"
)

// SetupRoutes registers every HTTP route on router
func SetupRoutes(router *mux.Router, presenterHandler *PresenterHandler, preferencesHandler *PreferencesHandler, wsHandler *WebSocketHandler, staticHandler *StaticHandler) {
	// Sync channel
	router.HandleFunc("/ws/{topic}", wsHandler.HandleWebSocket).Methods("GET")

	// Slide images
	router.HandleFunc("/images/{ref}", staticHandler.ServeImage).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// Deck and navigation
	api.HandleFunc("/state", presenterHandler.GetState).Methods("GET")
	api.HandleFunc("/deck/reload", presenterHandler.ReloadDeck).Methods("POST")
	api.HandleFunc("/deck/reset", presenterHandler.ResetDeck).Methods("POST")
	api.HandleFunc("/slides/next", presenterHandler.NextSlide).Methods("POST")
	api.HandleFunc("/slides/prev", presenterHandler.PrevSlide).Methods("POST")
	api.HandleFunc("/slides/{index:[0-9]+}", presenterHandler.SelectSlide).Methods("POST")
	api.HandleFunc("/overview", presenterHandler.ToggleOverview).Methods("POST")
	api.HandleFunc("/overview/move", presenterHandler.MoveHighlight).Methods("POST")
	api.HandleFunc("/overview/confirm", presenterHandler.ConfirmHighlight).Methods("POST")
	api.HandleFunc("/escape", presenterHandler.Escape).Methods("POST")
	api.HandleFunc("/container", presenterHandler.SetContainer).Methods("POST")

	// Overlays
	api.HandleFunc("/spotlight", presenterHandler.ToggleSpotlight).Methods("POST")
	api.HandleFunc("/pointer", presenterHandler.TogglePointer).Methods("POST")
	api.HandleFunc("/pointer/move", presenterHandler.MovePointer).Methods("POST")
	api.HandleFunc("/links", presenterHandler.GetLinks).Methods("GET")
	api.HandleFunc("/links/click", presenterHandler.ClickLink).Methods("POST")

	// Zoom and pan
	api.HandleFunc("/zoom", presenterHandler.Zoom).Methods("POST")
	api.HandleFunc("/zoom/reset", presenterHandler.ResetZoom).Methods("POST")
	api.HandleFunc("/zoom/wheel", presenterHandler.Wheel).Methods("POST")
	api.HandleFunc("/pan/step", presenterHandler.PanStep).Methods("POST")
	api.HandleFunc("/pan/drag", presenterHandler.DragPan).Methods("POST")
	api.HandleFunc("/region", presenterHandler.ZoomToRegion).Methods("POST")

	// Timer
	api.HandleFunc("/timer/pause", presenterHandler.PauseTimer).Methods("POST")
	api.HandleFunc("/timer/reset", presenterHandler.ResetTimer).Methods("POST")

	// Preferences
	api.HandleFunc("/preferences", preferencesHandler.GetPreferences).Methods("GET")
	api.HandleFunc("/preferences", preferencesHandler.UpdatePreferences).Methods("PUT")
	api.HandleFunc("/preferences/font/{direction}", preferencesHandler.AdjustFontSize).Methods("POST")
	api.HandleFunc("/preferences/reading-guide", preferencesHandler.ToggleReadingGuide).Methods("POST")
}
