// Package image provides raster layers, compositing, codecs and photo import
// for the markup canvas.
package image

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"
)

// Role indicates which canvas layer a buffer represents.
type Role int

const (
	RoleUnknown    Role = iota
	RoleBackground      // Imported photograph
	RoleInk             // Freehand markup
)

func (r Role) String() string {
	switch r {
	case RoleBackground:
		return "Background"
	case RoleInk:
		return "Ink"
	default:
		return "Unknown"
	}
}

// Layer is one fixed-size raster buffer of the canvas. A layer with a nil
// Image is empty and composites as fully transparent.
type Layer struct {
	Role    Role
	Image   *image.RGBA
	Width   int
	Height  int
	Visible bool    // Layer visibility while drawing
	Opacity float64 // Layer opacity while drawing (0.0 - 1.0)
}

// NewLayer creates an empty layer of the given canvas size.
func NewLayer(role Role, width, height int) *Layer {
	return &Layer{
		Role:    role,
		Width:   width,
		Height:  height,
		Visible: true,
		Opacity: 1.0,
	}
}

// Bounds returns the canvas rectangle the layer covers.
func (l *Layer) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}

// IsEmpty reports whether the layer holds no buffer.
func (l *Layer) IsEmpty() bool {
	return l.Image == nil
}

// Buffer returns the layer's pixel buffer, allocating a transparent one on
// first use.
func (l *Layer) Buffer() *image.RGBA {
	if l.Image == nil {
		l.Image = image.NewRGBA(l.Bounds())
	}
	return l.Image
}

// Replace swaps in img as the layer content. Images of another size are
// drawn into a canvas-sized buffer anchored at the origin.
func (l *Layer) Replace(img image.Image) {
	if img == nil {
		l.Image = nil
		return
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds() == l.Bounds() {
		l.Image = rgba
		return
	}
	buf := image.NewRGBA(l.Bounds())
	draw.Draw(buf, buf.Bounds(), img, img.Bounds().Min, draw.Src)
	l.Image = buf
}

// SetOpacity sets the display opacity, clamped to [0, 1].
func (l *Layer) SetOpacity(o float64) {
	l.Opacity = min(max(o, 0), 1)
}

// fullStrength returns a view of l that is visible and opaque, sharing its
// buffer.
func (l *Layer) fullStrength() *Layer {
	if l == nil {
		return nil
	}
	out := *l
	out.Visible = true
	out.Opacity = 1
	return &out
}

// Clear empties the layer.
func (l *Layer) Clear() {
	l.Image = nil
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	out := *l
	if l.Image != nil {
		out.Image = image.NewRGBA(l.Image.Bounds())
		copy(out.Image.Pix, l.Image.Pix)
	}
	return &out
}

// PixelAt returns the color at the specified pixel coordinates. Empty layers
// and out of range coordinates read as transparent.
func (l *Layer) PixelAt(x, y int) color.RGBA {
	if l.Image == nil || !(image.Point{X: x, Y: y}).In(l.Image.Bounds()) {
		return color.RGBA{}
	}
	return l.Image.RGBAAt(x, y)
}

// HasInk reports whether any pixel of the layer is not fully transparent.
func (l *Layer) HasInk() bool {
	if l.Image == nil {
		return false
	}
	for i := 3; i < len(l.Image.Pix); i += 4 {
		if l.Image.Pix[i] != 0 {
			return true
		}
	}
	return false
}

// SupportedFormats returns the list of image extensions offered for upload.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
