package markup

import (
	"context"
	"image/color"
	"testing"

	"quality-master/internal/app"
	"quality-master/internal/store"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
)

func newCanvas(t *testing.T) (*Canvas, *app.Session) {
	t.Helper()
	test.NewTempApp(t)

	cfg := app.DefaultConfig()
	cfg.StorageDir = ""
	s, err := app.NewSession(context.Background(), cfg, store.New(store.NewMemoryBackend(0)))
	if err != nil {
		t.Fatal(err)
	}
	c := New(s)
	// Taller than the 2:1 canvas, so the raster is letterboxed vertically.
	c.Resize(fyne.NewSize(450, 325))
	return c, s
}

func TestLetterboxViewport(t *testing.T) {
	c, _ := newCanvas(t)
	vp := c.Viewport()
	if vp.Element.X != 0 || vp.Element.Y != 50 || vp.Element.Width != 450 || vp.Element.Height != 225 {
		t.Errorf("element = %+v", vp.Element)
	}
	p, ok := c.toCanvas(fyne.NewPos(225, 50+112.5))
	if !ok || p.X != 450 || p.Y != 225 {
		t.Errorf("center maps to %+v, %v", p, ok)
	}
}

func TestMouseStroke(t *testing.T) {
	c, s := newCanvas(t)

	c.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(50, 100)}, Button: desktop.MouseButtonPrimary})
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(150, 100)}, Dragged: fyne.NewDelta(100, 0)})
	c.DragEnd()

	if s.Dragging() {
		t.Error("stroke should have ended")
	}
	// Widget (100,100) is canvas (200,100) at 2x.
	if px := s.Render().RGBAAt(200, 100); px.A != 255 || (px.R == 255 && px.G == 255 && px.B == 255) {
		t.Errorf("expected ink at canvas (200,100), got %v", px)
	}
	if s.Document().Markup.DrawingDataURL == "" {
		t.Error("stroke was not persisted on release")
	}
}

func TestSecondaryButtonDoesNotDraw(t *testing.T) {
	c, s := newCanvas(t)
	c.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(50, 100)}, Button: desktop.MouseButtonSecondary})
	if s.Dragging() {
		t.Error("secondary button started a stroke")
	}
}

func TestTouchDragStartsStroke(t *testing.T) {
	c, s := newCanvas(t)
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(120, 120)}, Dragged: fyne.NewDelta(40, 0)})
	if !s.Dragging() {
		t.Fatal("drag without mouse down should start a stroke")
	}
	c.MouseOut()
	if s.Dragging() {
		t.Error("leaving the canvas should end the stroke")
	}
}

func TestLeaveEndsGestureUntilRelease(t *testing.T) {
	c, s := newCanvas(t)

	c.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(50, 100)}, Button: desktop.MouseButtonPrimary})
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(100, 100)}, Dragged: fyne.NewDelta(50, 0)})
	c.MouseOut()
	before := s.Document().Markup.DrawingDataURL

	// The same gesture keeps dragging after leaving and comes back in.
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(300, 100)}, Dragged: fyne.NewDelta(40, 0)})
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(300, 200)}, Dragged: fyne.NewDelta(0, 100)})
	if s.Dragging() {
		t.Fatal("drag after leaving restarted the stroke")
	}
	if px := s.Render().RGBAAt(600, 300); px != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("ink drawn after leaving: %v", px)
	}
	if got := s.Document().Markup.DrawingDataURL; got != before {
		t.Error("drawing changed after leaving")
	}

	// A new gesture draws again.
	c.DragEnd()
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(300, 150)}, Dragged: fyne.NewDelta(20, 0)})
	if !s.Dragging() {
		t.Error("new gesture after release should start a stroke")
	}
}
