// Package geometry maps between container pixels and content-normalized
// coordinates for letterboxed slide images.
package geometry

import "math"

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return !(r.Width > 0 && r.Height > 0)
}

// Center returns the center point of the rectangle.
func (r Rect) Center() PixelPoint {
	return PixelPoint{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// PixelPoint is a position in container pixel space.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalizedPoint is a position relative to the content frame, with both
// coordinates in [0,1] when inside the content.
type NormalizedPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ContentFrame is where the image content sits inside its container after
// aspect-preserving "contain" fitting.
type ContentFrame struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Valid reports whether the frame has a usable area.
func (f ContentFrame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && !math.IsInf(f.Width, 0) && !math.IsInf(f.Height, 0)
}

// Translate returns the frame moved by (dx, dy).
func (f ContentFrame) Translate(dx, dy float64) ContentFrame {
	f.OffsetX += dx
	f.OffsetY += dy
	return f
}

// Rect returns the frame as a rectangle.
func (f ContentFrame) Rect() Rect {
	return Rect{X: f.OffsetX, Y: f.OffsetY, Width: f.Width, Height: f.Height}
}

// AspectRatio returns width/height of intrinsic image dimensions, or 0 when
// either dimension is not positive.
func AspectRatio(width, height float64) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return width / height
}

// ComputeContentFrame fits content of the given intrinsic aspect ratio into
// container. Offsets are relative to the container origin. It returns false
// for a zero-area container or an unusable aspect ratio.
func ComputeContentFrame(container Rect, aspect float64) (ContentFrame, bool) {
	if container.Empty() || !(aspect > 0) || math.IsInf(aspect, 0) {
		return ContentFrame{}, false
	}

	w, h := container.Width, container.Height
	if w/h > aspect {
		// container is wider than the content: height constrained
		renderedW := h * aspect
		return ContentFrame{
			OffsetX: (w - renderedW) / 2,
			OffsetY: 0,
			Width:   renderedW,
			Height:  h,
		}, true
	}

	renderedH := w / aspect
	return ContentFrame{
		OffsetX: 0,
		OffsetY: (h - renderedH) / 2,
		Width:   w,
		Height:  renderedH,
	}, true
}

// PixelToNormalized converts a pixel position into frame-relative
// coordinates. It returns false, without clamping, when the point falls
// outside the content or the frame is degenerate.
func PixelToNormalized(p PixelPoint, frame ContentFrame) (NormalizedPoint, bool) {
	if !frame.Valid() {
		return NormalizedPoint{}, false
	}
	n := NormalizedPoint{
		X: (p.X - frame.OffsetX) / frame.Width,
		Y: (p.Y - frame.OffsetY) / frame.Height,
	}
	if n.X < 0 || n.X > 1 || n.Y < 0 || n.Y > 1 {
		return NormalizedPoint{}, false
	}
	return n, true
}

// ClampedPixelToNormalized is PixelToNormalized with the result clamped into
// [0,1]. Region selections use it so a drag that overshoots the image edge
// still selects up to that edge.
func ClampedPixelToNormalized(p PixelPoint, frame ContentFrame) (NormalizedPoint, bool) {
	if !frame.Valid() {
		return NormalizedPoint{}, false
	}
	return NormalizedPoint{
		X: clamp01((p.X - frame.OffsetX) / frame.Width),
		Y: clamp01((p.Y - frame.OffsetY) / frame.Height),
	}, true
}

// NormalizedToPixel is the inverse of PixelToNormalized.
func NormalizedToPixel(n NormalizedPoint, frame ContentFrame) PixelPoint {
	return PixelPoint{
		X: frame.OffsetX + n.X*frame.Width,
		Y: frame.OffsetY + n.Y*frame.Height,
	}
}

// RectFromPoints returns the rectangle spanned by two drag corners.
func RectFromPoints(a, b PixelPoint) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
