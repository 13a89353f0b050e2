//go:build !cgo

package delay

type tesseract struct{}

// NewTesseract returns a Recognizer that always fails; this binary was built
// without CGO.
func NewTesseract(string) Recognizer { return tesseract{} }

func (tesseract) Recognize([]byte) (string, error) { return "", ErrOCRUnavailable }
