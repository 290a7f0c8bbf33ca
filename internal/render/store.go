// Package render turns document pages into displayable images and keeps the
// encoded results addressable by reference.
package render

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/WebPressive/webpressive.github.io/internal/models"
)

// ErrUnknownImage is returned for a reference the store does not hold.
var ErrUnknownImage = errors.New("unknown image reference")

// Image is an encoded image with its MIME type.
type Image struct {
	MIME string
	Data []byte
}

// ImageStore holds the encoded images of one surface.
type ImageStore struct {
	mu     sync.RWMutex
	images map[models.ImageRef]Image
}

// NewImageStore creates an empty store.
func NewImageStore() *ImageStore {
	return &ImageStore{images: make(map[models.ImageRef]Image)}
}

// Put stores data and returns its new reference.
func (s *ImageStore) Put(mime string, data []byte) models.ImageRef {
	ref := models.ImageRef(uuid.NewString())
	s.mu.Lock()
	s.images[ref] = Image{MIME: mime, Data: data}
	s.mu.Unlock()
	return ref
}

// Get returns the image behind ref.
func (s *ImageStore) Get(ref models.ImageRef) (Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[ref]
	if !ok {
		return Image{}, ErrUnknownImage
	}
	return img, nil
}

// Release frees ref. Releasing an unknown reference is a no-op.
func (s *ImageStore) Release(ref models.ImageRef) {
	if ref == "" {
		return
	}
	s.mu.Lock()
	delete(s.images, ref)
	s.mu.Unlock()
}

// Len returns the number of held images.
func (s *ImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
