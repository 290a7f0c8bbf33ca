package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/WebPressive/webpressive.github.io/internal/models"
)

// ErrPageOutOfRange is returned when a page index does not exist.
var ErrPageOutOfRange = errors.New("page index out of range")

// maxRenderSide bounds the longer side of a zoomed render.
const maxRenderSide = 8192

// Page is one decoded document page plus its side data.
type Page struct {
	Image image.Image
	Name  string
	Notes string
	Links []models.LinkRegion
}

// RasterDeck serves slides backed by decoded page images and re-renders
// pages at zoom resolutions on demand.
type RasterDeck struct {
	store  *ImageStore
	mu     sync.RWMutex
	pages  []image.Image
	slides []models.SlideRecord
}

// Decode reads a PNG, JPEG, BMP or WebP page image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image: %w", err)
	}
	return img, nil
}

// NewRasterDeck encodes every page into store and builds the slide records.
// Links that violate the region invariants are dropped.
func NewRasterDeck(store *ImageStore, pages []Page) (*RasterDeck, error) {
	d := &RasterDeck{store: store}
	for i, p := range pages {
		if p.Image == nil {
			d.Close()
			return nil, fmt.Errorf("page %d has no image", i+1)
		}
		b := p.Image.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			d.Close()
			return nil, fmt.Errorf("page %d has an empty image", i+1)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, p.Image); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}

		name := p.Name
		if name == "" {
			name = fmt.Sprintf("Slide %d", i+1)
		}
		links := make([]models.LinkRegion, 0, len(p.Links))
		for _, l := range p.Links {
			if l.Validate() == nil {
				links = append(links, l)
			}
		}

		d.pages = append(d.pages, p.Image)
		d.slides = append(d.slides, models.SlideRecord{
			ID:     uuid.NewString(),
			Image:  store.Put("image/png", buf.Bytes()),
			Name:   name,
			Notes:  p.Notes,
			Links:  links,
			Width:  b.Dx(),
			Height: b.Dy(),
		})
	}
	return d, nil
}

// Slides returns a copy of the slide records.
func (d *RasterDeck) Slides() []models.SlideRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.SlideRecord, len(d.slides))
	copy(out, d.slides)
	return out
}

// RenderPageAtZoom resamples page at zoom times its base resolution and
// stores the PNG result. The caller owns the returned reference and must
// Release it once superseded.
func (d *RasterDeck) RenderPageAtZoom(ctx context.Context, page int, zoom float64) (models.ImageRef, error) {
	d.mu.RLock()
	if page < 0 || page >= len(d.pages) {
		d.mu.RUnlock()
		return "", ErrPageOutOfRange
	}
	src := d.pages[page]
	d.mu.RUnlock()

	if !(zoom > 0) || math.IsInf(zoom, 0) {
		return "", fmt.Errorf("invalid zoom level %v", zoom)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sb := src.Bounds()
	w, h := scaledSize(sb.Dx(), sb.Dy(), zoom)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("failed to encode zoomed page %d: %w", page+1, err)
	}
	return d.store.Put("image/png", buf.Bytes()), nil
}

// Release frees a zoom render.
func (d *RasterDeck) Release(ref models.ImageRef) {
	d.store.Release(ref)
}

// Close releases every page image held by the deck.
func (d *RasterDeck) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.slides {
		d.store.Release(s.Image)
	}
	d.slides = nil
	d.pages = nil
}

func scaledSize(w, h int, zoom float64) (int, int) {
	sw := math.Max(1, math.Round(float64(w)*zoom))
	sh := math.Max(1, math.Round(float64(h)*zoom))
	if longest := math.Max(sw, sh); longest > maxRenderSide {
		f := maxRenderSide / longest
		sw = math.Max(1, math.Round(sw*f))
		sh = math.Max(1, math.Round(sh*f))
	}
	return int(sw), int(sh)
}
