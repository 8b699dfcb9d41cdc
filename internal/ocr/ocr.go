// Package ocr turns a stitched list image into an ordered token stream.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Recognizer extracts text tokens, in reading order, from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]string, error)
	Name() string
}

const (
	BackendClova     = "clova"
	BackendTesseract = "tesseract"
)

var (
	ErrEmptyResponse      = errors.New("ocr response contained no images")
	ErrNotConfigured      = errors.New("ocr backend is not configured")
	ErrBackendUnavailable = errors.New("ocr backend not compiled into this build")
)

// StatusError is returned when the OCR service answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ocr request failed with status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Settings selects and configures a backend
type Settings struct {
	Backend   string
	ClovaURL  string
	ClovaKey  string
	Languages []string // tesseract only
}

// New builds the recognizer named by settings.Backend.
func New(settings Settings) (Recognizer, error) {
	switch strings.ToLower(settings.Backend) {
	case "", BackendClova:
		return NewClovaClient(ClovaConfig{URL: settings.ClovaURL, Secret: settings.ClovaKey})
	case BackendTesseract:
		return newTesseract(settings.Languages)
	default:
		return nil, fmt.Errorf("unknown ocr backend %q", settings.Backend)
	}
}
