package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtraction holds the text pulled out of an uploaded PDF
type PDFExtraction struct {
	Text      string
	PageCount int
}

// PDFExtractor extracts plain text from PDF material uploads
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText extracts the plain text of every page. Pages that fail to
// decode are skipped; extraction fails only when the document itself is
// unreadable.
func (e *PDFExtractor) ExtractText(content []byte) (*PDFExtraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	pageCount := reader.NumPage()
	var b strings.Builder

	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		b.WriteString(text)
		b.WriteString("\n")
	}

	return &PDFExtraction{
		Text:      strings.TrimSpace(b.String()),
		PageCount: pageCount,
	}, nil
}
