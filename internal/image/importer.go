package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
)

// DefaultJPEGQuality is the re-encode quality for imported photos. Phone
// photos are several megabytes; at canvas size and this quality a background
// stays well under 100 KiB.
const DefaultJPEGQuality = 80

// Importer fits uploaded photos into the fixed canvas frame.
type Importer struct {
	Width   int
	Height  int
	Quality int
	Decoder Decoder
	Scaler  xdraw.Interpolator
	Matte   color.Color // fill for the letterbox bars; JPEG carries no alpha
}

// Imported is the result of a successful import.
type Imported struct {
	Image      *image.RGBA     // canvas-sized background as it will be restored
	DataURL    string          // JPEG data URL for the form document
	Placement  image.Rectangle // where the photo landed inside the frame
	SourceSize image.Point     // decoded photo dimensions
}

// NewImporter returns an importer for a canvas of the given size.
func NewImporter(width, height int) *Importer {
	return &Importer{
		Width:   width,
		Height:  height,
		Quality: DefaultJPEGQuality,
		Decoder: StdDecoder{},
		Scaler:  xdraw.CatmullRom,
		Matte:   color.White,
	}
}

// Import decodes r, letterboxes it into the canvas frame and re-encodes it.
// Nothing is returned on failure, so callers can keep their old background.
func (im *Importer) Import(r io.Reader) (*Imported, error) {
	data, err := ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrDecode)
	}

	dec := im.Decoder
	if dec == nil {
		dec = StdDecoder{}
	}
	src, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	sb := src.Bounds()
	if sb.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	frame, placement := im.fit(src)

	encoded, err := EncodeJPEG(frame, im.Quality)
	if err != nil {
		return nil, err
	}

	// Keep the in-memory background identical to what a reload will produce.
	restored, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	draw.Draw(rgba, rgba.Bounds(), restored, restored.Bounds().Min, draw.Src)

	return &Imported{
		Image:      rgba,
		DataURL:    DataURL(MIMEJPEG, encoded),
		Placement:  placement,
		SourceSize: sb.Size(),
	}, nil
}

// fit renders src scaled by min(cw/iw, ch/ih) and centered on a canvas-sized
// buffer.
func (im *Importer) fit(src image.Image) (*image.RGBA, image.Rectangle) {
	placement := FitRect(src.Bounds().Size(), im.Width, im.Height)

	dst := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	if im.Matte != nil {
		draw.Draw(dst, dst.Bounds(), &image.Uniform{C: im.Matte}, image.Point{}, draw.Src)
	}

	scaler := im.Scaler
	if scaler == nil {
		scaler = xdraw.CatmullRom
	}
	scaler.Scale(dst, placement, src, src.Bounds(), draw.Over, nil)
	return dst, placement
}

// FitRect returns the centered, aspect-preserving rectangle an image of size
// src occupies inside a width x height frame.
func FitRect(src image.Point, width, height int) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return image.Rectangle{}
	}
	scale := math.Min(float64(width)/float64(src.X), float64(height)/float64(src.Y))
	w := int(math.Round(float64(src.X) * scale))
	h := int(math.Round(float64(src.Y) * scale))
	w = min(max(w, 1), width)
	h = min(max(h, 1), height)
	x := (width - w) / 2
	y := (height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
