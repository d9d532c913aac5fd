package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
)

// Reader handles PDF text extraction
type Reader struct {
	validator   *Validator
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// PageTexts extracts the plain text of every page, in page order.
// Pages whose content cannot be decoded yield an empty string instead of
// failing the whole document. A document with no text on any page is
// reported as ErrorTypeDetectionFailed.
func (r *Reader) PageTexts(path string) ([]PageText, error) {
	if err := r.validator.CheckFile(path); err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeSourceUnreadable, "failed to open PDF", err).WithPath(path)
	}
	defer f.Close()

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeSourceUnreadable, "PDF has no pages").WithPath(path)
	}

	pages := make([]PageText, 0, numPages)
	total := 0
	hasText := false

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text := r.pageText(pdfReader, pageNum)

		if total+len(text) > r.maxTextSize {
			remaining := r.maxTextSize - total
			if remaining < 0 {
				remaining = 0
			}
			text = text[:remaining]
		}
		total += len(text)

		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		pages = append(pages, PageText{Number: pageNum, Text: text})

		if total >= r.maxTextSize {
			break
		}
	}

	if !hasText {
		return pages, pdferrors.New(pdferrors.ErrorTypeDetectionFailed,
			"no text content could be extracted from PDF").WithPath(path)
	}

	return pages, nil
}

// pageText extracts one page, recovering from decoder panics on malformed
// content streams
func (r *Reader) pageText(pdfReader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}

// DescribePages summarises extracted text lengths per page for logging
func DescribePages(pages []PageText) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, fmt.Sprintf("p%d:%d", p.Number, len(p.Text)))
	}
	return strings.Join(parts, " ")
}
