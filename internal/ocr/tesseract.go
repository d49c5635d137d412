// Package ocr reads panel serial numbers off imported panel photos.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// SerialChars is the character set panel serials are stamped with.
// Lowercase is excluded to reduce confusion (0/O, 1/I, etc.)
const SerialChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-"

// ErrNoSerial is returned when no word in the photo looks like a serial.
var ErrNoSerial = errors.New("ocr: no serial found")

// Word is one recognised token.
type Word struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64
}

// SerialReader runs Tesseract over photos. A reader is safe for concurrent
// use but serialises recognition.
type SerialReader struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewSerialReader creates a reader backed by the system Tesseract install.
func NewSerialReader() (*SerialReader, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Serials are not dictionary words; stop Tesseract from "correcting" them.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0")
	_ = client.SetVariable("language_model_penalty_non_freq_dict_word", "0")

	return &SerialReader{client: client}, nil
}

// Close releases OCR resources.
func (r *SerialReader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Words recognises every word in img.
func (r *SerialReader) Words(img image.Image) ([]Word, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	buf, err := preprocess(img)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := r.client.SetWhitelist(SerialChars); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := r.client.SetImageFromBytes(buf); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		text := strings.ToUpper(strings.TrimSpace(box.Word))
		if text == "" {
			continue
		}
		words = append(words, Word{Text: text, Bounds: box.Box, Confidence: box.Confidence})
	}
	return words, nil
}

// Suggest returns the most serial-like word in img. The caller should show
// it for confirmation rather than apply it.
func (r *SerialReader) Suggest(img image.Image) (string, error) {
	words, err := r.Words(img)
	if err != nil {
		return "", err
	}
	serial, ok := PickSerial(words)
	if !ok {
		return "", ErrNoSerial
	}
	return serial, nil
}

// PickSerial chooses the longest word of at least four serial characters
// containing a digit. Ties go to the higher confidence, then the earlier
// word.
func PickSerial(words []Word) (string, bool) {
	best, bestConf := "", 0.0
	for _, w := range words {
		text := strings.Trim(w.Text, "-")
		if !looksLikeSerial(text) {
			continue
		}
		if len(text) > len(best) || (len(text) == len(best) && w.Confidence > bestConf) {
			best, bestConf = text, w.Confidence
		}
	}
	return best, best != ""
}

func looksLikeSerial(s string) bool {
	if len(s) < 4 {
		return false
	}
	digit := false
	for _, c := range s {
		if !strings.ContainsRune(SerialChars, c) {
			return false
		}
		if c >= '0' && c <= '9' {
			digit = true
		}
	}
	return digit
}

// preprocess converts img to a high-contrast binary PNG, dark text on light.
func preprocess(img image.Image) ([]byte, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	// CLAHE evens out the glare typical of glossy panels.
	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{8, 8})
	defer clahe.Close()
	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(gray, &enhanced)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Tesseract expects dark text on a light background.
	if total := binary.Rows() * binary.Cols(); total > 0 && float64(gocv.CountNonZero(binary))/float64(total) < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
