package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder turns uploaded bytes into an image.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
}

// StdDecoder decodes every format registered with the image package
// (jpeg, png, gif, bmp, tiff, webp).
type StdDecoder struct{}

// Decode implements Decoder.
func (StdDecoder) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Fallback tries each decoder in order and returns the first success.
type Fallback []Decoder

// Decode implements Decoder.
func (f Fallback) Decode(data []byte) (image.Image, error) {
	var lastErr error = ErrDecode
	for _, d := range f {
		if d == nil {
			continue
		}
		img, err := d.Decode(data)
		if err == nil {
			return img, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ReadAll is a helper for callers holding a reader rather than bytes.
func ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}
