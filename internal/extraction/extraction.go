package extraction

import (
	"context"
	"fmt"
	"strings"

	"specsum/internal/model"
)

// Extractor turns raw PDF bytes into a transient Document. Implemented by
// Pipeline; consumers (the analysis service) depend on this interface so OCR
// and parsing can be faked in tests.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) (*model.Document, error)
}

// DirectExtractor reads the PDF's own text layer and returns one text span
// per physical page, in page order. A parse failure means the PDF could not
// be opened at all; per-page problems should degrade to empty spans instead.
type DirectExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// Rasterizer renders each PDF page to an encoded PNG at the given DPI.
// A page that cannot be rendered should come back as a nil entry rather
// than failing the whole document.
type Rasterizer interface {
	RenderPages(ctx context.Context, data []byte, dpi int) ([][]byte, error)
}

// Recognizer runs optical character recognition over one page image.
// An empty languages list means "engine default / unspecified".
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, languages ...string) (string, error)
}

// Progress is invoked once per page during OCR so long-running recognition
// stays observable. page is 1-based, total is the page count.
type Progress func(page, total int)

// ExtractionError reports a PDF that could not be parsed at all. Callers in
// a multi-document batch treat it as "no content extracted" for that one
// document, not as a batch-fatal error.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Config tunes the OCR decision and cascade.
type Config struct {
	// Threshold is the average chars/page below which OCR is attempted.
	// The comparison is strict less-than: a document averaging exactly
	// Threshold stays on the direct path.
	Threshold float64
	// DPI for page rasterization.
	DPI int
	// Languages is the first OCR cascade tier (multilingual).
	Languages []string
	// FallbackLanguage is the second tier; the third tier runs with no
	// language hint at all.
	FallbackLanguage string
}

// Pipeline converts PDF bytes into pages of text, escalating to OCR when the
// direct text layer is too sparse. A nil Recognizer means OCR is unavailable;
// the pipeline then degrades to whatever the text layer held instead of
// failing.
type Pipeline struct {
	direct   DirectExtractor
	raster   Rasterizer
	ocr      Recognizer
	cfg      Config
	progress Progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress registers a per-page OCR progress callback.
func WithProgress(p Progress) Option {
	return func(pl *Pipeline) { pl.progress = p }
}

// NewPipeline wires the extraction pipeline. ocr may be nil when no OCR
// backend is installed or it is disabled by configuration.
func NewPipeline(direct DirectExtractor, raster Rasterizer, ocr Recognizer, cfg Config, opts ...Option) *Pipeline {
	pl := &Pipeline{direct: direct, raster: raster, ocr: ocr, cfg: cfg}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

var _ Extractor = (*Pipeline)(nil)

// Extract runs direct extraction, decides whether the result looks like a
// scanned document, and if so attempts OCR. OCR output replaces the direct
// result only when it yields strictly more text, and then wholesale: mixed
// scanned/text documents are handled all-or-nothing.
func (p *Pipeline) Extract(ctx context.Context, data []byte, filename string) (*model.Document, error) {
	spans, err := p.direct.ExtractPages(ctx, data)
	if err != nil {
		// Unparseable text layer. OCR is the backup of last resort; without
		// it the document is unreadable.
		if p.ocr != nil {
			if pages, ocrErr := p.runOCR(ctx, data, filename); ocrErr == nil && countChars(pages) > 0 {
				return &model.Document{Filename: filename, Pages: pages}, nil
			}
		}
		return nil, &ExtractionError{Filename: filename, Err: err}
	}

	directPages := tagPages(spans, model.MethodDirect, filename)
	directChars := countChars(directPages)

	avgCharsPerPage := 0.0
	if len(directPages) > 0 {
		avgCharsPerPage = float64(directChars) / float64(len(directPages))
	}

	// Zero-page documents have an average of 0 and therefore always take the
	// OCR branch when a backend exists.
	if avgCharsPerPage >= p.cfg.Threshold {
		return &model.Document{Filename: filename, Pages: directPages}, nil
	}
	if p.ocr == nil {
		// Sparse text and no OCR backend: proceed with what we have rather
		// than failing the document.
		return &model.Document{Filename: filename, Pages: directPages}, nil
	}

	ocrPages, err := p.runOCR(ctx, data, filename)
	if err != nil {
		return &model.Document{Filename: filename, Pages: directPages}, nil
	}
	if countChars(ocrPages) > directChars {
		return &model.Document{Filename: filename, Pages: ocrPages}, nil
	}
	return &model.Document{Filename: filename, Pages: directPages}, nil
}

// runOCR rasterizes every page and recognizes each through the language
// cascade. Individual page failures degrade to empty text; only a failure to
// rasterize the document at all is returned as an error.
func (p *Pipeline) runOCR(ctx context.Context, data []byte, filename string) ([]model.Page, error) {
	images, err := p.raster.RenderPages(ctx, data, p.cfg.DPI)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	pages := make([]model.Page, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := ""
		if len(img) > 0 {
			text = p.recognizePage(ctx, img)
		}
		pages = append(pages, model.Page{
			Index:  i,
			Text:   text,
			Method: model.MethodOCR,
			Source: filename,
		})
		if p.progress != nil {
			p.progress(i+1, len(images))
		}
	}
	return pages, nil
}

// recognizePage runs the language cascade over a single page image:
// multilingual, then the single fallback language, then no language hint.
// Each tier failure only degrades this page; a page where every tier fails
// ends up with empty text.
func (p *Pipeline) recognizePage(ctx context.Context, img []byte) string {
	if len(p.cfg.Languages) > 0 {
		if text, err := p.ocr.Recognize(ctx, img, p.cfg.Languages...); err == nil {
			return text
		}
	}
	if p.cfg.FallbackLanguage != "" {
		if text, err := p.ocr.Recognize(ctx, img, p.cfg.FallbackLanguage); err == nil {
			return text
		}
	}
	if text, err := p.ocr.Recognize(ctx, img); err == nil {
		return text
	}
	return ""
}

func tagPages(spans []string, method model.ExtractionMethod, filename string) []model.Page {
	pages := make([]model.Page, 0, len(spans))
	for i, s := range spans {
		pages = append(pages, model.Page{
			Index:  i,
			Text:   s,
			Method: method,
			Source: filename,
		})
	}
	return pages
}

func countChars(pages []model.Page) int {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
	}
	return len(strings.TrimSpace(b.String()))
}
