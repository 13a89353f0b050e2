package delay

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// signGIF renders text the way the ATIS sign does: amber on black.
func signGIF(t *testing.T, text string) []byte {
	t.Helper()
	width := len(text)*7 + 20
	img := image.NewRGBA(image.Rect(0, 0, width, 24))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{255, 191, 0, 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(10), Y: fixed.I(17)},
	}
	d.DrawString(text)

	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

type fakeRecognizer struct {
	text string
	err  error
	got  []byte
}

func (f *fakeRecognizer) Recognize(png []byte) (string, error) {
	f.got = png
	return f.text, f.err
}

type fakeSource struct {
	data []byte
	err  error
}

func (f fakeSource) FetchBytes(context.Context) ([]byte, error) { return f.data, f.err }

func TestParseSign(t *testing.T) {
	tests := []struct {
		text    string
		status  Status
		minutes int
	}{
		{"NO DELAY", StatusNoDelay, 0},
		{"  no\n delays  ", StatusNoDelay, 0},
		{"DELAY: NONE", StatusNoDelay, 0},
		{"DELAY 0 MIN", StatusNoDelay, 0},
		{"DELAY 15 MIN", StatusDelay, 15},
		{"NORTHBOUND\nDELAY 20 MINUTES", StatusDelay, 20},
		{"DELAY 10-15 MINS", StatusDelay, 10},
		{"", StatusUnknown, 0},
		{"LIONS GATE", StatusUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ParseSign(tt.text)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.minutes, got.Minutes)
			assert.NotContains(t, got.Text, "\n")
		})
	}
}

func TestPrepare(t *testing.T) {
	data := signGIF(t, "DELAY 15 MIN")

	out, err := Prepare(data)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	src, err := gif.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds().Dx()*upscale, img.Bounds().Dx())
	assert.Equal(t, src.Bounds().Dy()*upscale, img.Bounds().Dy())

	_, err = Prepare([]byte("GIF89a-but-not-really"))
	assert.Error(t, err)
}

func TestReader_Read(t *testing.T) {
	rec := &fakeRecognizer{text: "DELAY 25 MIN"}
	r := NewReader(fakeSource{data: signGIF(t, "DELAY 25 MIN")}, rec)

	reading, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDelay, reading.Status)
	assert.Equal(t, 25, reading.Minutes)
	assert.True(t, bytes.HasPrefix(rec.got, []byte("\x89PNG")), "recognizer should receive PNG")
}

func TestReader_Errors(t *testing.T) {
	fetchErr := errors.New("sign offline")
	_, err := NewReader(fakeSource{err: fetchErr}, &fakeRecognizer{}).Read(context.Background())
	assert.ErrorIs(t, err, fetchErr)

	_, err = NewReader(nil, &fakeRecognizer{}).Read(context.Background())
	assert.Error(t, err)

	rec := &fakeRecognizer{err: ErrOCRUnavailable}
	_, err = NewReader(nil, rec).ReadImage(signGIF(t, "NO DELAY"))
	assert.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestTesseract_RenderedSign(t *testing.T) {
	r := NewReader(nil, NewTesseract("eng"))

	reading, err := r.ReadImage(signGIF(t, "DELAY 15 MIN"))
	if errors.Is(err, ErrOCRUnavailable) {
		t.Skip("Tesseract not available")
	}
	require.NoError(t, err)

	t.Logf("recognized %q", reading.Text)
	// Bitmap fonts at this size are marginal for Tesseract; only insist on
	// something that looks like the sign.
	if !strings.Contains(strings.ToUpper(reading.Text), "DELAY") {
		t.Log("Warning: sign text not recognized, OCR quality varies by Tesseract version")
	}
}
