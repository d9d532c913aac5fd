package declaration

import (
	"io"
	"log"
	"strings"

	"github.com/a3tai/declaration-signer/internal/pdf"
)

// KeywordRule maps a phrase in the document text to a category
type KeywordRule struct {
	Keyword  string
	Category Category
}

// DefaultCategory is returned when no rule matches. It is a soft outcome,
// not an error.
const DefaultCategory = CategoryIsraeli

// defaultRules are evaluated in order on each page; the first hit wins.
// "זר" also occurs inside ordinary words (עזרה, חוזר), so the specific
// company phrase must stay ahead of it.
var defaultRules = []KeywordRule{
	{Keyword: "פרטי החברה השוכרת", Category: CategoryCompany},
	{Keyword: "זר", Category: CategoryForeigner},
}

// DefaultRules returns a copy of the built-in keyword rules
func DefaultRules() []KeywordRule {
	return append([]KeywordRule(nil), defaultRules...)
}

// Classify returns the category of a single text block and the keyword that
// decided it. When nothing matches it returns DefaultCategory and "".
func Classify(text string) (Category, string) {
	return classifyWith(defaultRules, text)
}

func classifyWith(rules []KeywordRule, text string) (Category, string) {
	for _, rule := range rules {
		if strings.Contains(text, rule.Keyword) {
			return rule.Category, rule.Keyword
		}
	}
	return DefaultCategory, ""
}

// pageTextReader is the part of pdf.Reader the detector needs
type pageTextReader interface {
	PageTexts(path string) ([]pdf.PageText, error)
}

// Detector classifies declaration PDFs from their embedded text
type Detector struct {
	reader pageTextReader
	rules  []KeywordRule
	logger *log.Logger
}

// NewDetector creates a detector reading files up to maxFileSize bytes
func NewDetector(maxFileSize int64, logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Detector{
		reader: pdf.NewReader(maxFileSize),
		rules:  DefaultRules(),
		logger: logger,
	}
}

// DetectFile extracts the text of each page and classifies the document.
// Pages are scanned in order and the first page with any match decides.
// Unreadable files and files with no extractable text are errors; a
// readable document without keywords yields DefaultCategory.
func (d *Detector) DetectFile(path string) (*Detection, error) {
	pages, err := d.reader.PageTexts(path)
	if err != nil {
		return nil, err
	}
	d.logger.Printf("detect %s: %s", path, pdf.DescribePages(pages))

	result := &Detection{Path: path, Category: DefaultCategory, Pages: len(pages)}
	for _, page := range pages {
		category, keyword := classifyWith(d.rules, page.Text)
		if keyword == "" {
			continue
		}
		result.Category = category
		result.Keyword = keyword
		result.Page = page.Number
		break
	}

	d.logger.Printf("detect %s: category=%s page=%d", path, result.Category, result.Page)
	return result, nil
}
