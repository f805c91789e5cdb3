// Package extract pulls plain text out of staged PDF files.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docubot/internal/logger"
)

// PDFExtractor extracts text from PDF files page by page. Extraction is
// best effort: a page that cannot be decoded contributes nothing, and
// only file-level failures are reported to the caller.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads the PDF at path and returns the concatenated page text,
// pages joined by single spaces.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open %s: %w", path, err)
	}
	defer f.Close()

	var pages []string
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("extract: %s page %d/%d unreadable: %v", path, i, total, err)
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, " "), nil
}
