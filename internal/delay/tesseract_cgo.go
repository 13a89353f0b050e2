//go:build cgo

package delay

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

type tesseract struct {
	language string
}

// NewTesseract returns a Recognizer backed by the system Tesseract install.
func NewTesseract(language string) Recognizer {
	if language == "" {
		language = "eng"
	}
	return &tesseract{language: language}
}

// Recognize runs OCR on png. A fresh client is created per call; gosseract
// clients are not safe for concurrent use.
func (t *tesseract) Recognize(png []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("%w: set language %q: %w", ErrOCRUnavailable, t.language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("%w: set page segmentation: %w", ErrOCRUnavailable, err)
	}
	if err := client.SetWhitelist("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-: "); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}
	return text, nil
}
