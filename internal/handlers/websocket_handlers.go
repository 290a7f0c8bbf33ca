package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WebPressive/webpressive.github.io/internal/services"
)

// WebSocketHandler connects presenter and receiver windows to a sync topic
type WebSocketHandler struct {
	wsService *services.WebSocketService
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(wsService *services.WebSocketService) *WebSocketHandler {
	return &WebSocketHandler{
		wsService: wsService,
	}
}

// HandleWebSocket upgrades the connection and joins the topic in the path.
// Receiver windows add ?role=receiver.
// GET /ws/{topic}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.wsService.HandleWebSocket(w, r, vars["topic"])
}
