package geometry

import "gonum.org/v1/gonum/spatial/r2"

// Viewport maps pointer positions on a rendered element back into the pixel
// space of the buffer it displays. Element is the element's bounding box in
// viewport units; Backing is the size of the pixel buffer behind it.
//
// The two axes are scaled independently, so responsive layouts that stretch
// the element non-uniformly still land strokes under the pointer.
type Viewport struct {
	Element Rect
	Backing Size
}

// Mounted reports whether the element currently has a rendered size.
func (v Viewport) Mounted() bool {
	return !v.Element.Empty() && v.Backing.Width > 0 && v.Backing.Height > 0
}

// ScaleFactors returns backing size divided by rendered size for each axis.
func (v Viewport) ScaleFactors() (sx, sy float64) {
	return v.Backing.Width / v.Element.Width, v.Backing.Height / v.Element.Height
}

// ToCanvas converts a viewport position into backing pixel coordinates. The
// boolean is false when the element is not mounted and the event should be
// skipped.
func (v Viewport) ToCanvas(p Point2D) (Point2D, bool) {
	if !v.Mounted() {
		return Point2D{}, false
	}
	sx, sy := v.ScaleFactors()
	off := r2.Sub(p.Vec(), v.Element.TopLeft().Vec())
	return Point2D{X: off.X * sx, Y: off.Y * sy}, true
}
