package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/render"
)

// StaticHandler serves slide and zoom images from the image store
type StaticHandler struct {
	store *render.ImageStore
}

// NewStaticHandler creates a new static handler
func NewStaticHandler(store *render.ImageStore) *StaticHandler {
	return &StaticHandler{
		store: store,
	}
}

// ServeImage writes an encoded image. Refs never change content, so the
// response is cacheable.
// GET /images/{ref}
func (h *StaticHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	img, err := h.store.Get(models.ImageRef(vars["ref"]))
	if errors.Is(err, render.ErrUnknownImage) {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.Write(img.Data)
}
