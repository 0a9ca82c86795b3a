package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer implements Recognizer with the gosseract client.
// A fresh client per call keeps the engine state (image, languages) isolated;
// the cost is acceptable at one call per page.
type TesseractRecognizer struct {
	newClient func() *gosseract.Client
}

// NewTesseractRecognizer constructs a Tesseract-backed recognizer.
func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{newClient: gosseract.NewClient}
}

var _ Recognizer = (*TesseractRecognizer)(nil)

// Recognize runs OCR over one encoded page image. Passing no languages leaves
// the engine on its default trained data, which is the cascade's last tier.
func (e *TesseractRecognizer) Recognize(ctx context.Context, image []byte, languages ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.newClient()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			return "", fmt.Errorf("set languages %v: %w", languages, err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
