//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"jordanella.com/noruhunter-go/internal/cv"
)

// tesseractRecognizer runs a local Tesseract install through gosseract.
type tesseractRecognizer struct {
	languages []string
}

func newTesseract(languages []string) (Recognizer, error) {
	if len(languages) == 0 {
		languages = []string{"kor", "eng"}
	}
	return &tesseractRecognizer{languages: languages}, nil
}

func (t *tesseractRecognizer) Name() string { return BackendTesseract }

// Recognize implements Recognizer. Tokens are whitespace-separated words in reading order.
func (t *tesseractRecognizer) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := cv.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("failed to set tesseract languages: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to load image into tesseract: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract failed: %w", err)
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyResponse
	}
	return tokens, nil
}
