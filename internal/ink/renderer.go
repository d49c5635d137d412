// Package ink rasterises freehand markup strokes onto the ink layer.
package ink

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	qmimage "quality-master/internal/image"
	"quality-master/pkg/geometry"

	"github.com/fogleman/gg"
)

// Mode selects how a stroke is composited.
type Mode int

const (
	Pen    Mode = iota // source-over in the stroke color
	Eraser             // destination-out, color ignored
)

func (m Mode) String() string {
	switch m {
	case Pen:
		return "Pen"
	case Eraser:
		return "Eraser"
	default:
		return "Unknown"
	}
}

// Style is the tool state captured at draw time.
type Style struct {
	Mode  Mode
	Color color.RGBA
	Width float64
}

// Segment is one straight piece of a stroke in canvas pixel space.
type Segment struct {
	From  geometry.Point2D
	To    geometry.Point2D
	Style Style
}

// Renderer draws segments onto an ink buffer. It keeps a gg context bound to
// the last target and a scratch coverage buffer for the eraser; it holds no
// drawing state of its own.
type Renderer struct {
	target *image.RGBA
	dc     *gg.Context

	scratch   *image.RGBA
	scratchDC *gg.Context
}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// DrawSegment draws seg onto layer and returns the rectangle that changed.
// A nil layer is ignored.
func (r *Renderer) DrawSegment(layer *image.RGBA, seg Segment) image.Rectangle {
	return r.DrawPath(layer, []geometry.Point2D{seg.From, seg.To}, seg.Style)
}

// DrawPath strokes a polyline as a single path so interior joins are round
// rather than overlapping caps.
func (r *Renderer) DrawPath(layer *image.RGBA, pts []geometry.Point2D, style Style) image.Rectangle {
	if layer == nil || len(pts) == 0 {
		return image.Rectangle{}
	}
	width := style.Width
	if width <= 0 {
		width = 1
	}
	dirty := pathBounds(pts, width).Intersect(layer.Bounds())
	if dirty.Empty() {
		return image.Rectangle{}
	}

	switch style.Mode {
	case Eraser:
		dc := r.scratchFor(layer.Bounds())
		draw.Draw(r.scratch, dirty, image.Transparent, image.Point{}, draw.Src)
		dc.SetColor(color.Black)
		stroke(dc, pts, width)
		hardenAlpha(r.scratch, dirty)
		qmimage.DestinationOut(layer, r.scratch, dirty)
	default:
		dc := r.contextFor(layer)
		dc.SetColor(style.Color)
		stroke(dc, pts, width)
	}
	return dirty
}

func (r *Renderer) contextFor(layer *image.RGBA) *gg.Context {
	if r.target != layer || r.dc == nil {
		r.target = layer
		r.dc = gg.NewContextForRGBA(layer)
	}
	return r.dc
}

func (r *Renderer) scratchFor(bounds image.Rectangle) *gg.Context {
	if r.scratch == nil || r.scratch.Bounds() != bounds {
		r.scratch = image.NewRGBA(bounds)
		r.scratchDC = gg.NewContextForRGBA(r.scratch)
	}
	return r.scratchDC
}

// hardenAlpha turns every partially covered pixel of mask inside r fully
// opaque, so an eraser clears every pixel a pen stroke of the same geometry
// touched, anti-aliased edge included.
func hardenAlpha(mask *image.RGBA, r image.Rectangle) {
	r = r.Intersect(mask.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := mask.PixOffset(r.Min.X, y) + 3
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			if mask.Pix[i] != 0 {
				mask.Pix[i] = 0xff
			}
		}
	}
}

func stroke(dc *gg.Context, pts []geometry.Point2D, width float64) {
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.SetLineWidth(width)

	if isDot(pts) {
		// A zero-length path has no stroke outline; paint the round cap directly.
		dc.DrawCircle(pts[0].X, pts[0].Y, width/2)
		dc.Fill()
		return
	}

	dc.NewSubPath()
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
}

func isDot(pts []geometry.Point2D) bool {
	for _, p := range pts[1:] {
		if p != pts[0] {
			return false
		}
	}
	return true
}

func pathBounds(pts []geometry.Point2D, width float64) image.Rectangle {
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	pad := width/2 + 2
	return image.Rect(
		int(math.Floor(minX-pad)),
		int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)),
		int(math.Ceil(maxY+pad)),
	)
}
