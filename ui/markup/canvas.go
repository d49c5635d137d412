// Package markup provides the drawing surface for panel markup.
package markup

import (
	"image"
	"image/color"

	"quality-master/internal/app"
	"quality-master/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Canvas displays the session's flattened layers, letterboxed to keep the
// canvas aspect ratio, and turns pointer input into session strokes.
type Canvas struct {
	widget.BaseWidget

	session *app.Session
	raster  *fynecanvas.Raster
	frame   *fynecanvas.Rectangle

	// Where the raster sits inside the widget, in widget coordinates.
	viewport geometry.Viewport

	// left is set when the pointer leaves mid-stroke. Drag events of the
	// same gesture are ignored until it ends.
	left bool
}

var (
	_ fyne.Widget        = (*Canvas)(nil)
	_ fyne.Draggable     = (*Canvas)(nil)
	_ desktop.Mouseable  = (*Canvas)(nil)
	_ desktop.Hoverable  = (*Canvas)(nil)
	_ desktop.Cursorable = (*Canvas)(nil)
)

// New creates a canvas bound to session.
func New(session *app.Session) *Canvas {
	size := session.Size()
	c := &Canvas{
		session: session,
		frame:   fynecanvas.NewRectangle(nil),
	}
	c.frame.StrokeWidth = 1
	c.frame.StrokeColor = color.NRGBA{R: 0xDD, G: 0xDD, B: 0xDD, A: 0xFF}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScaleSmooth
	c.viewport.Backing = geometry.NewSize(float64(size.X), float64(size.Y))
	c.ExtendBaseWidget(c)
	return c
}

func (c *Canvas) draw(w, h int) image.Image {
	return c.session.Render()
}

// Viewport returns the current mapping from widget to canvas coordinates.
func (c *Canvas) Viewport() geometry.Viewport {
	return c.viewport
}

func (c *Canvas) layout(size fyne.Size) {
	fit := c.viewport.Backing.FitWithin(geometry.NewSize(float64(size.Width), float64(size.Height)))
	c.viewport.Element = fit
	pos := fyne.NewPos(float32(fit.X), float32(fit.Y))
	sz := fyne.NewSize(float32(fit.Width), float32(fit.Height))
	c.raster.Move(pos)
	c.raster.Resize(sz)
	c.frame.Move(pos)
	c.frame.Resize(sz)
}

// toCanvas maps a widget position into canvas pixels. It reports false
// before the widget has been laid out.
func (c *Canvas) toCanvas(pos fyne.Position) (geometry.Point2D, bool) {
	return c.viewport.ToCanvas(geometry.NewPoint2D(float64(pos.X), float64(pos.Y)))
}

// MouseDown starts a stroke with the primary button.
func (c *Canvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.left = false
	if p, ok := c.toCanvas(ev.Position); ok {
		c.session.PointerDown(p)
	}
}

// MouseUp ends the stroke.
func (c *Canvas) MouseUp(*desktop.MouseEvent) {
	c.left = false
	c.session.PointerUp()
}

// Dragged extends the stroke. Touch input has no MouseDown, so the stroke
// starts at the drag origin.
func (c *Canvas) Dragged(ev *fyne.DragEvent) {
	if c.left {
		return
	}
	if !c.session.Dragging() {
		start := ev.Position.Subtract(ev.Dragged)
		if p, ok := c.toCanvas(start); ok {
			c.session.PointerDown(p)
		}
	}
	if p, ok := c.toCanvas(ev.Position); ok {
		c.session.PointerMove(p)
	}
}

// DragEnd ends the stroke.
func (c *Canvas) DragEnd() {
	c.left = false
	c.session.PointerUp()
}

// MouseIn implements desktop.Hoverable.
func (c *Canvas) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (c *Canvas) MouseMoved(*desktop.MouseEvent) {}

// MouseOut ends a stroke whose pointer left the canvas. The stroke does not
// resume if the gesture comes back.
func (c *Canvas) MouseOut() {
	if c.session.Dragging() {
		c.left = true
	}
	c.session.PointerLeave()
}

// Cursor implements desktop.Cursorable.
func (c *Canvas) Cursor() desktop.Cursor {
	return desktop.CrosshairCursor
}

// MinSize keeps the canvas usable on small windows.
func (c *Canvas) MinSize() fyne.Size {
	return fyne.NewSize(float32(c.viewport.Backing.Width)/2, float32(c.viewport.Backing.Height)/2)
}

// CreateRenderer implements fyne.Widget.
func (c *Canvas) CreateRenderer() fyne.WidgetRenderer {
	return &canvasRenderer{canvas: c}
}

type canvasRenderer struct {
	canvas *Canvas
}

func (r *canvasRenderer) Layout(size fyne.Size) {
	r.canvas.layout(size)
}

func (r *canvasRenderer) MinSize() fyne.Size {
	return r.canvas.MinSize()
}

func (r *canvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *canvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster, r.canvas.frame}
}

func (r *canvasRenderer) Destroy() {}
