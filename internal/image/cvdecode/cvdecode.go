// Package cvdecode decodes uploaded photos with OpenCV.
//
// Phone cameras store pixels in sensor orientation and record the intended
// rotation in EXIF. The standard library ignores that tag, so portrait shots
// import sideways. OpenCV's color decode path applies the EXIF orientation
// before returning pixels.
package cvdecode

import (
	"fmt"
	"image"

	qmimage "quality-master/internal/image"

	"gocv.io/x/gocv"
)

// Decoder implements qmimage.Decoder using gocv.
type Decoder struct{}

// Decode implements qmimage.Decoder.
func (Decoder) Decode(data []byte) (image.Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", qmimage.ErrDecode, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: opencv returned an empty matrix", qmimage.ErrDecode)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", qmimage.ErrDecode, err)
	}
	return img, nil
}

// WithFallback returns a decoder that tries OpenCV first and the standard
// library decoders second.
func WithFallback() qmimage.Decoder {
	return qmimage.Fallback{Decoder{}, qmimage.StdDecoder{}}
}
