package model

import (
	"strings"
	"time"
)

// ExtractionMethod tags how a page's text was obtained.
type ExtractionMethod string

const (
	// MethodDirect means the text came from the PDF's own text layer.
	MethodDirect ExtractionMethod = "direct"
	// MethodOCR means the text was recognized from a rasterized page image.
	MethodOCR ExtractionMethod = "ocr"
)

// Page is one unit of extracted content from a PDF. Index is 0-based and
// Source carries the owning document's filename for downstream attribution.
type Page struct {
	Index  int              `json:"index"`
	Text   string           `json:"text"`
	Method ExtractionMethod `json:"method"`
	Source string           `json:"source"`
}

// Document is the transient, in-request view of an uploaded PDF after
// extraction. Raw bytes are never persisted; only derived AnalysisRecords are.
type Document struct {
	Filename string `json:"filename"`
	Pages    []Page `json:"pages"`
}

// Text joins all page text with blank lines, in page order.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// TotalChars counts the characters of all page text combined, ignoring
// leading/trailing whitespace of the joined text.
func (d *Document) TotalChars() int {
	var b strings.Builder
	for _, p := range d.Pages {
		b.WriteString(p.Text)
	}
	return len(strings.TrimSpace(b.String()))
}

// AnalysisRecord is the persisted, immutable result of one completed analysis
// run for one filename. Records are append-only: a regeneration inserts a new
// row, it never updates an old one, so the full history for a filename remains
// queryable and "latest" is resolved by created_at.
type AnalysisRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Filename  string    `json:"filename"`
	Summary   string    `json:"summary"`
	Tables    string    `json:"tables,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
