// Package extract pulls the text layer out of uploaded documents.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadableDocument signals a document without a usable text layer,
// typically an image-only scan. OCR is not attempted; this failure is
// terminal for the ingestion attempt.
var ErrUnreadableDocument = errors.New("document has no readable text layer")

// DefaultMinTextLength is the minimum total extracted text length below
// which a document is treated as image-only.
const DefaultMinTextLength = 100

// PageSeparator joins page texts so downstream consumers can still see
// page boundaries in the concatenated output.
const PageSeparator = "\n\n"

// Result holds the extracted text layer of a document.
type Result struct {
	Text      string
	PageCount int
}

// PDFExtractor extracts the text layer from PDF bytes.
type PDFExtractor struct {
	minTextLength int
}

// NewPDFExtractor creates an extractor. minTextLength <= 0 selects
// DefaultMinTextLength.
func NewPDFExtractor(minTextLength int) *PDFExtractor {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	return &PDFExtractor{minTextLength: minTextLength}
}

// Extract reads the text layer of the given PDF bytes.
// Pages that fail to parse individually are skipped; if the total text
// falls below the minimum length the document is reported unreadable.
func (e *PDFExtractor) Extract(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(newBytesReaderAt(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(PageSeparator)
		}
		b.WriteString(text)
	}

	extracted := strings.TrimSpace(b.String())
	if len(extracted) < e.minTextLength {
		return nil, fmt.Errorf("%w: %d characters extracted from %d pages",
			ErrUnreadableDocument, len(extracted), numPages)
	}

	return &Result{Text: extracted, PageCount: numPages}, nil
}

// bytesReaderAt adapts a byte slice to io.ReaderAt for the pdf library.
type bytesReaderAt struct {
	data []byte
}

func newBytesReaderAt(data []byte) *bytesReaderAt {
	return &bytesReaderAt{data: data}
}

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n = copy(p, r.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}
