//go:build !tesseract

package ocr

import "fmt"

func newTesseract([]string) (Recognizer, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags tesseract", ErrBackendUnavailable)
}
