package extraction

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFTextExtractor reads the text layer of a PDF with ledongthuc/pdf.
// Pure Go, no external dependencies, which keeps the direct path deployable
// as a single binary even where the OCR toolchain is absent.
type PDFTextExtractor struct{}

// NewPDFTextExtractor returns the default direct extractor.
func NewPDFTextExtractor() *PDFTextExtractor { return &PDFTextExtractor{} }

var _ DirectExtractor = (*PDFTextExtractor)(nil)

// ExtractPages returns one text span per physical page. Pages whose text
// cannot be decoded (image-only pages, odd encodings) come back as empty
// spans; only a document that cannot be opened at all is an error.
func (e *PDFTextExtractor) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := r.NumPage()
	spans := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			spans = append(spans, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			spans = append(spans, "")
			continue
		}
		spans = append(spans, text)
	}
	return spans, nil
}
