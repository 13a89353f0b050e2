// Package delay reads the ATIS travel-delay sign published next to the
// bridge camera.
//
// The sign is a small GIF rendered by the provincial traffic system. It is
// upscaled and converted to high-contrast grayscale before recognition,
// then the recognized text is parsed for a delay in minutes.
//
// Recognition uses Tesseract through gosseract and therefore needs CGO.
// Builds without CGO still compile; their Recognizer reports
// ErrOCRUnavailable.
package delay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrOCRUnavailable is returned when the binary was built without OCR support
// or the OCR engine could not be initialised.
var ErrOCRUnavailable = errors.New("OCR unavailable")

// Recognizer turns a PNG into text.
type Recognizer interface {
	Recognize(png []byte) (string, error)
}

// ByteSource yields the raw sign image, typically a camera.HTTPSource.
type ByteSource interface {
	FetchBytes(ctx context.Context) ([]byte, error)
}

// Status classifies what the sign says.
type Status string

const (
	StatusNoDelay Status = "no_delay"
	StatusDelay   Status = "delay"
	StatusUnknown Status = "unknown"
)

// Reading is one interpretation of the sign.
type Reading struct {
	Text    string `json:"text"`
	Status  Status `json:"status"`
	Minutes int    `json:"minutes,omitempty"`
}

// Reader fetches and recognises the delay sign.
type Reader struct {
	src ByteSource
	rec Recognizer
}

// NewReader creates a Reader. src may be nil when only ReadImage is used.
func NewReader(src ByteSource, rec Recognizer) *Reader {
	return &Reader{src: src, rec: rec}
}

// Read fetches the current sign and interprets it.
func (r *Reader) Read(ctx context.Context) (*Reading, error) {
	if r.src == nil {
		return nil, fmt.Errorf("delay sign source not configured")
	}
	data, err := r.src.FetchBytes(ctx)
	if err != nil {
		return nil, err
	}
	return r.ReadImage(data)
}

// ReadImage interprets already downloaded sign bytes (GIF, PNG or JPEG).
func (r *Reader) ReadImage(data []byte) (*Reading, error) {
	prepared, err := Prepare(data)
	if err != nil {
		return nil, err
	}
	text, err := r.rec.Recognize(prepared)
	if err != nil {
		return nil, err
	}
	reading := ParseSign(text)
	return &reading, nil
}

// upscale is the enlargement applied before recognition; the sign's glyphs
// are only a few pixels tall.
const upscale = 3

// Prepare converts a sign image into an upscaled, high-contrast grayscale PNG.
func Prepare(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode sign image: %w", err)
	}

	b := img.Bounds()
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 40)
	gray = imaging.Resize(gray, b.Dx()*upscale, b.Dy()*upscale, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode sign image: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	minutesPattern = regexp.MustCompile(`(\d{1,3})\s*(?:-\s*\d{1,3}\s*)?(?:MIN|MINS|MINUTES)\b`)
	noDelayPattern = regexp.MustCompile(`\bNO\s+(?:DELAY|DELAYS)\b|\bDELAY\s*:?\s*(?:NONE|0\s*MIN)`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// ParseSign interprets recognised sign text. Ranges like "10-15 MIN" report
// the lower bound.
func ParseSign(text string) Reading {
	clean := strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	upper := strings.ToUpper(clean)

	reading := Reading{Text: clean, Status: StatusUnknown}
	switch {
	case noDelayPattern.MatchString(upper):
		reading.Status = StatusNoDelay
	case minutesPattern.MatchString(upper):
		m := minutesPattern.FindStringSubmatch(upper)
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return reading
		}
		if n == 0 {
			reading.Status = StatusNoDelay
			return reading
		}
		reading.Status = StatusDelay
		reading.Minutes = n
	}
	return reading
}
