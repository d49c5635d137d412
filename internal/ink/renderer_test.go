package ink

import (
	"image"
	"image/color"
	"testing"

	"quality-master/pkg/geometry"
)

var pink = color.RGBA{0xff, 0x4d, 0xa6, 0xff}

func newInk() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 100, 50))
}

func horizontal(mode Mode) Segment {
	return Segment{
		From:  geometry.NewPoint2D(10, 20),
		To:    geometry.NewPoint2D(90, 20),
		Style: Style{Mode: mode, Color: pink, Width: 6},
	}
}

func TestPenDrawsLegendColor(t *testing.T) {
	layer := newInk()
	r := NewRenderer()
	dirty := r.DrawSegment(layer, horizontal(Pen))

	if dirty.Empty() || !image.Pt(50, 20).In(dirty) {
		t.Fatalf("dirty rect %v should cover the stroke", dirty)
	}
	for x := 15; x <= 85; x += 10 {
		if got := layer.RGBAAt(x, 20); got != pink {
			t.Errorf("pixel (%d,20) = %v, want %v", x, got, pink)
		}
	}
	if got := layer.RGBAAt(50, 40); got.A != 0 {
		t.Errorf("pixel away from the stroke must stay transparent, got %v", got)
	}
}

func TestPenRoundCaps(t *testing.T) {
	layer := newInk()
	NewRenderer().DrawSegment(layer, horizontal(Pen))
	// Round caps extend half the width past each endpoint.
	if got := layer.RGBAAt(8, 20); got.A == 0 {
		t.Errorf("expected cap coverage before the start point, got %v", got)
	}
	if got := layer.RGBAAt(95, 20); got.A != 0 {
		t.Errorf("cap should not extend beyond width/2, got %v", got)
	}
}

func TestEraserRemovesPen(t *testing.T) {
	diagonal := func(mode Mode) Segment {
		return Segment{
			From:  geometry.NewPoint2D(12, 7),
			To:    geometry.NewPoint2D(83, 41),
			Style: Style{Mode: mode, Color: pink, Width: 6},
		}
	}
	tests := []struct {
		name string
		seg  func(Mode) Segment
	}{
		{"horizontal", horizontal},
		{"diagonal", diagonal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer := newInk()
			r := NewRenderer()
			r.DrawSegment(layer, tt.seg(Pen))
			r.DrawSegment(layer, tt.seg(Eraser))

			// The anti-aliased rim of the pen stroke must go too.
			b := layer.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					if got := layer.RGBAAt(x, y); got != (color.RGBA{}) {
						t.Fatalf("pixel (%d,%d) = %v, expected fully transparent", x, y, got)
					}
				}
			}
		})
	}
}

func TestEraserIgnoresColor(t *testing.T) {
	a, b := newInk(), newInk()
	r := NewRenderer()
	r.DrawSegment(a, horizontal(Pen))
	r.DrawSegment(b, horizontal(Pen))

	e1 := horizontal(Eraser)
	e1.Style.Width = 3
	e2 := e1
	e2.Style.Color = color.RGBA{0, 255, 0, 255}
	r.DrawSegment(a, e1)
	r.DrawSegment(b, e2)

	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("eraser result depends on color at byte %d", i)
		}
	}
}

func TestEraserOnEmptyLayerStaysTransparent(t *testing.T) {
	layer := newInk()
	NewRenderer().DrawSegment(layer, horizontal(Eraser))
	for i := 3; i < len(layer.Pix); i += 4 {
		if layer.Pix[i] != 0 {
			t.Fatal("eraser must not add coverage")
		}
	}
}

func TestDotAndNilLayer(t *testing.T) {
	r := NewRenderer()
	if got := r.DrawSegment(nil, horizontal(Pen)); !got.Empty() {
		t.Errorf("nil layer should be ignored, got dirty %v", got)
	}

	layer := newInk()
	p := geometry.NewPoint2D(50, 25)
	r.DrawSegment(layer, Segment{From: p, To: p, Style: Style{Mode: Pen, Color: pink, Width: 10}})
	if got := layer.RGBAAt(50, 25); got != pink {
		t.Errorf("zero-length segment should leave a dot, got %v", got)
	}
}

func TestRendererFollowsNewTarget(t *testing.T) {
	r := NewRenderer()
	first, second := newInk(), newInk()
	r.DrawSegment(first, horizontal(Pen))
	r.DrawSegment(second, horizontal(Pen))
	if second.RGBAAt(50, 20) != pink {
		t.Error("renderer kept drawing into the previous buffer")
	}
}
