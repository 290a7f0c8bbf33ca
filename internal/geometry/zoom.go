package geometry

import (
	"math"

	"seehuhn.de/go/geom/matrix"
)

// ViewportState is the zoom and pan applied to the rendered slide, as
// scale-then-translate around the container center. Pan is in device pixels.
type ViewportState struct {
	ZoomLevel float64 `json:"zoomLevel"`
	PanX      float64 `json:"panX"`
	PanY      float64 `json:"panY"`
}

// Identity is the reset viewport.
var Identity = ViewportState{ZoomLevel: 1}

// IsIdentity reports whether v is the reset state.
func (v ViewportState) IsIdentity() bool {
	return v.ZoomLevel == 1 && v.PanX == 0 && v.PanY == 0
}

// Transform returns the affine map from untransformed container pixels to
// on-screen pixels: scale by ZoomLevel around the container center, then
// translate by the pan offset.
func (v ViewportState) Transform(container Rect) matrix.Matrix {
	z := v.ZoomLevel
	if !(z > 0) {
		z = 1
	}
	c := container.Center()
	return matrix.Translate(-c.X, -c.Y).
		Mul(matrix.Scale(z, z)).
		Mul(matrix.Translate(c.X+v.PanX, c.Y+v.PanY))
}

// Apply maps p through m.
func Apply(m matrix.Matrix, p PixelPoint) PixelPoint {
	x, y := m.Apply(p.X, p.Y)
	return PixelPoint{X: x, Y: y}
}

// Invert maps p back through m. It returns false for a singular matrix.
func Invert(m matrix.Matrix, p PixelPoint) (PixelPoint, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 || math.IsNaN(det) {
		return PixelPoint{}, false
	}
	return Apply(m.Inv(), p), true
}

// LiveImageRect returns the on-screen rectangle of an element that fills
// container and has v applied as its transform.
func LiveImageRect(container Rect, v ViewportState) Rect {
	m := v.Transform(container)
	tl := Apply(m, PixelPoint{X: container.X, Y: container.Y})
	br := Apply(m, PixelPoint{X: container.X + container.Width, Y: container.Y + container.Height})
	return RectFromPoints(tl, br)
}

// LiveContentFrame is the content frame as currently displayed, after the
// viewport transform. Offsets share the container's coordinate space.
func LiveContentFrame(container Rect, aspect float64, v ViewportState) (ContentFrame, bool) {
	live := LiveImageRect(container, v)
	frame, ok := ComputeContentFrame(live, aspect)
	if !ok {
		return ContentFrame{}, false
	}
	return frame.Translate(live.X, live.Y), true
}

// ClampZoom bounds level to [lo, hi].
func ClampZoom(level, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, level))
}

// Region is a rectangle in normalized content coordinates given by two
// opposite corners in any order.
type Region struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Size returns the absolute width and height of the region.
func (r Region) Size() (w, h float64) {
	return math.Abs(r.X1 - r.X0), math.Abs(r.Y1 - r.Y0)
}

// Center returns the normalized center of the region.
func (r Region) Center() NormalizedPoint {
	return NormalizedPoint{X: (r.X0 + r.X1) / 2, Y: (r.Y0 + r.Y1) / 2}
}

// RegionToZoomPan computes the viewport that centers region at a zoom level
// that makes it fill the viewport. base must be the unzoomed content frame;
// using a live, already zoomed frame would compound on repeated
// region zooms. Regions whose larger side is below minRegion are clicks, not
// drags, and yield false.
func RegionToZoomPan(region Region, base ContentFrame, minRegion, minZoom, maxZoom float64) (ViewportState, bool) {
	w, h := region.Size()
	side := math.Max(w, h)
	if side < minRegion || side == 0 || !base.Valid() {
		return ViewportState{}, false
	}

	zoom := ClampZoom(1/side, minZoom, maxZoom)
	c := region.Center()
	return ViewportState{
		ZoomLevel: zoom,
		PanX:      (0.5 - c.X) * base.Width * zoom,
		PanY:      (0.5 - c.Y) * base.Height * zoom,
	}, true
}
