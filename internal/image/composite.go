package image

import (
	"image"
	"image/color"
	"image/draw"
)

// Composite combines multiple layers into a single image.
type Composite struct {
	Width     int
	Height    int
	Layers    []*Layer
	BackColor color.Color
}

// NewComposite creates a new Composite with the specified dimensions.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.White,
	}
}

// AddLayer adds a layer on top of the stack.
func (c *Composite) AddLayer(layer *Layer) {
	c.Layers = append(c.Layers, layer)
}

// Render produces the final composited image. Layers are drawn bottom to top,
// source-over, honouring each layer's Visible and Opacity.
func (c *Composite) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))

	if c.BackColor != nil {
		draw.Draw(result, result.Bounds(), &image.Uniform{C: c.BackColor}, image.Point{}, draw.Src)
	}

	for _, l := range c.Layers {
		if l == nil || l.Image == nil || !l.Visible || l.Opacity <= 0 {
			continue
		}
		compositeLayer(result, l)
	}

	return result
}

// compositeLayer blends a single layer onto the result.
func compositeLayer(dst *image.RGBA, l *Layer) {
	src := l.Image
	r := dst.Bounds().Intersect(src.Bounds())

	var mask image.Image
	if l.Opacity < 1 {
		mask = image.NewUniform(color.Alpha{A: uint8(l.Opacity*255 + 0.5)})
	}
	draw.DrawMask(dst, r, src, r.Min, mask, image.Point{}, draw.Over)
}

// DestinationOut removes coverage from dst inside r: each premultiplied
// channel of a dst pixel is multiplied by (1 - srcAlpha). Colors of src are
// ignored.
func DestinationOut(dst *image.RGBA, src image.Image, r image.Rectangle) {
	r = r.Intersect(dst.Bounds()).Intersect(src.Bounds())
	if r.Empty() {
		return
	}

	alphaAt := func(x, y int) uint32 {
		_, _, _, a := src.At(x, y).RGBA()
		return a >> 8
	}
	switch s := src.(type) {
	case *image.Alpha:
		alphaAt = func(x, y int) uint32 { return uint32(s.AlphaAt(x, y).A) }
	case *image.RGBA:
		alphaAt = func(x, y int) uint32 { return uint32(s.Pix[s.PixOffset(x, y)+3]) }
	}

	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			sa := alphaAt(x, y)
			if sa == 0 {
				continue
			}
			keep := 255 - sa
			px := dst.Pix[i : i+4 : i+4]
			px[0] = uint8((uint32(px[0])*keep + 127) / 255)
			px[1] = uint8((uint32(px[1])*keep + 127) / 255)
			px[2] = uint8((uint32(px[2])*keep + 127) / 255)
			px[3] = uint8((uint32(px[3])*keep + 127) / 255)
		}
	}
}

// Flatten draws background then ink onto a fresh opaque canvas at full
// strength, ignoring the layers' display settings. Neither input is modified.
func Flatten(background, ink *Layer, width, height int) *image.RGBA {
	c := NewComposite(width, height)
	c.AddLayer(background.fullStrength())
	c.AddLayer(ink.fullStrength())
	return c.Render()
}
