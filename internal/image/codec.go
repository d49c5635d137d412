package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
)

// ErrDecode is returned when bytes cannot be turned into an image.
var ErrDecode = errors.New("image: cannot decode")

// MIME types used for stored layers.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// EncodePNG encodes img losslessly, preserving transparency.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes img with the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps data in a base64 data URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURL reports whether s looks like a data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL splits a base64 data URL into its MIME type and payload.
func ParseDataURL(s string) (string, []byte, error) {
	if !IsDataURL(s) {
		return "", nil, fmt.Errorf("%w: not a data url", ErrDecode)
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: data url has no payload", ErrDecode)
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: data url is not base64", ErrDecode)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return mime, data, nil
}

// DecodeDataURL decodes the image held in a data URL.
func DecodeDataURL(s string) (image.Image, error) {
	_, data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// PNGDataURL encodes img as a PNG data URL.
func PNGDataURL(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return DataURL(MIMEPNG, data), nil
}
