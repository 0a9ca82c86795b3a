package extraction

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzRasterizer renders PDF pages to PNG images using go-fitz (MuPDF).
type FitzRasterizer struct{}

// NewFitzRasterizer returns the default page rasterizer.
func NewFitzRasterizer() *FitzRasterizer { return &FitzRasterizer{} }

var _ Rasterizer = (*FitzRasterizer)(nil)

// RenderPages renders every page at the requested DPI. A page that fails to
// render yields a nil entry so the caller can skip it without losing page
// indexing; only failing to open the document is an error.
func (r *FitzRasterizer) RenderPages(ctx context.Context, data []byte, dpi int) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf for rasterization: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	images := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		png, err := doc.ImagePNG(i, float64(dpi))
		if err != nil {
			images = append(images, nil)
			continue
		}
		images = append(images, png)
	}
	return images, nil
}
