package protocol

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/render"
)

const defaultImageMIME = "image/png"

// EncodeDataURL inlines data as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL reverses EncodeDataURL. Bare base64 without the data:
// prefix is accepted as PNG.
func DecodeDataURL(s string) (string, []byte, error) {
	mime := defaultImageMIME
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, rest, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		media, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return "", nil, fmt.Errorf("data URL is not base64 encoded")
		}
		if media != "" {
			mime = media
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return mime, data, nil
}

// WireSlides inlines every slide image from store.
func WireSlides(slides []models.SlideRecord, store *render.ImageStore) ([]WireSlide, error) {
	out := make([]WireSlide, 0, len(slides))
	for i, s := range slides {
		img, err := store.Get(s.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to inline slide %d: %w", i+1, err)
		}
		out = append(out, WireSlide{
			ID:        s.ID,
			Name:      s.Name,
			ImageData: EncodeDataURL(img.MIME, img.Data),
			Notes:     s.Notes,
			Links:     s.Links,
			Width:     s.Width,
			Height:    s.Height,
		})
	}
	return out, nil
}

// RestoreSlides decodes wire slides into store. On error nothing is left in
// store.
func RestoreSlides(wire []WireSlide, store *render.ImageStore) ([]models.SlideRecord, error) {
	out := make([]models.SlideRecord, 0, len(wire))
	for i, w := range wire {
		mime, data, err := DecodeDataURL(w.ImageData)
		if err != nil {
			for _, s := range out {
				store.Release(s.Image)
			}
			return nil, fmt.Errorf("failed to restore slide %d: %w", i+1, err)
		}
		out = append(out, models.SlideRecord{
			ID:     w.ID,
			Image:  store.Put(mime, data),
			Name:   w.Name,
			Notes:  w.Notes,
			Links:  w.Links,
			Width:  w.Width,
			Height: w.Height,
		})
	}
	return out, nil
}
