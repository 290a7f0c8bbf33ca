// Package overlay resolves spotlight, pointer, link and selection overlays
// from normalized positions to pixels against the displayed content frame.
package overlay

import (
	"seehuhn.de/go/geom/matrix"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/models"
)

// DefaultSpotlightRadius is the spotlight hole radius in pixels.
const DefaultSpotlightRadius = 200

// Mask is a circular spotlight hole; everything outside it is dimmed.
type Mask struct {
	Center geometry.PixelPoint `json:"center"`
	Radius float64             `json:"radius"`
}

// Spotlight dims the slide except around one point.
type Spotlight struct {
	Radius float64
}

// Resolve places the spotlight for pos inside frame. It reports false when
// there is no position or no usable frame, in which case nothing is drawn.
func (s Spotlight) Resolve(pos *geometry.NormalizedPoint, frame geometry.ContentFrame) (Mask, bool) {
	if pos == nil || !frame.Valid() {
		return Mask{}, false
	}
	r := s.Radius
	if r <= 0 {
		r = DefaultSpotlightRadius
	}
	return Mask{Center: geometry.NormalizedToPixel(*pos, frame), Radius: r}, true
}

// Pointer is the laser-pointer dot.
type Pointer struct{}

// Resolve places the pointer dot for pos inside frame.
func (Pointer) Resolve(pos *geometry.NormalizedPoint, frame geometry.ContentFrame) (geometry.PixelPoint, bool) {
	if pos == nil || !frame.Valid() {
		return geometry.PixelPoint{}, false
	}
	return geometry.NormalizedToPixel(*pos, frame), true
}

// SelectionRect is the rectangle drawn during a region gesture, in container
// pixels.
func SelectionRect(start, current geometry.PixelPoint) geometry.Rect {
	return geometry.RectFromPoints(start, current)
}

// LinkBox is one link hit-target laid out against the unzoomed frame.
type LinkBox struct {
	Link models.LinkRegion `json:"link"`
	Box  geometry.Rect     `json:"box"`
}

// LinkLayer lays out link hit-targets. The receiving display uses a
// disabled layer so its links draw but never activate.
type LinkLayer struct {
	Enabled bool
}

// Layout holds link boxes in base-frame pixels and the single transform
// applied to the whole layer.
type Layout struct {
	Boxes     []LinkBox     `json:"boxes"`
	Transform matrix.Matrix `json:"transform"`
	Enabled   bool          `json:"enabled"`
}

// Layout positions links against the base content frame and attaches the
// viewport transform of container, so boxes follow zoomed content without
// per-link recomputation.
func (l LinkLayer) Layout(links []models.LinkRegion, base geometry.ContentFrame, v geometry.ViewportState, container geometry.Rect) Layout {
	out := Layout{Transform: v.Transform(container), Enabled: l.Enabled}
	if !base.Valid() {
		return out
	}
	for _, link := range links {
		if link.Validate() != nil {
			continue
		}
		tl := geometry.NormalizedToPixel(geometry.NormalizedPoint{X: link.X, Y: link.Y}, base)
		out.Boxes = append(out.Boxes, LinkBox{
			Link: link,
			Box: geometry.Rect{
				X:      tl.X,
				Y:      tl.Y,
				Width:  link.Width * base.Width,
				Height: link.Height * base.Height,
			},
		})
	}
	return out
}

// LiveBoxes returns the on-screen rectangles of the boxes.
func (l Layout) LiveBoxes() []geometry.Rect {
	out := make([]geometry.Rect, len(l.Boxes))
	for i, b := range l.Boxes {
		tl := geometry.Apply(l.Transform, geometry.PixelPoint{X: b.Box.X, Y: b.Box.Y})
		br := geometry.Apply(l.Transform, geometry.PixelPoint{X: b.Box.X + b.Box.Width, Y: b.Box.Y + b.Box.Height})
		out[i] = geometry.RectFromPoints(tl, br)
	}
	return out
}

// HitTest finds the topmost link under the on-screen point p. Disabled
// layers never hit.
func (l Layout) HitTest(p geometry.PixelPoint) (models.LinkRegion, bool) {
	if !l.Enabled {
		return models.LinkRegion{}, false
	}
	q, ok := geometry.Invert(l.Transform, p)
	if !ok {
		return models.LinkRegion{}, false
	}
	for i := len(l.Boxes) - 1; i >= 0; i-- {
		b := l.Boxes[i].Box
		if q.X >= b.X && q.X <= b.X+b.Width && q.Y >= b.Y && q.Y <= b.Y+b.Height {
			return l.Boxes[i].Link, true
		}
	}
	return models.LinkRegion{}, false
}
