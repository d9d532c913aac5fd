// Package declaration detects the kind of a legal declaration PDF and signs
// it with a notary overlay.
package declaration

import (
	"strings"
	"time"

	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
)

// Category is the kind of signer a declaration is written for
type Category string

const (
	CategoryUnknown   Category = ""
	CategoryCompany   Category = "company"
	CategoryForeigner Category = "foreigner"
	CategoryIsraeli   Category = "israeli"
)

// Categories lists the valid categories in detection order
var Categories = []Category{CategoryCompany, CategoryForeigner, CategoryIsraeli}

// String returns the category label
func (c Category) String() string {
	if c == CategoryUnknown {
		return "unknown"
	}
	return string(c)
}

// Valid reports whether c is one of the three known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryCompany, CategoryForeigner, CategoryIsraeli:
		return true
	}
	return false
}

// ParseCategory parses a category label, case-insensitively.
// "person" is accepted as an alias of israeli.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "company":
		return CategoryCompany, nil
	case "foreigner":
		return CategoryForeigner, nil
	case "israeli", "person":
		return CategoryIsraeli, nil
	}
	return CategoryUnknown, pdferrors.Newf(pdferrors.ErrorTypeInvalidInput,
		"unknown declaration type %q (must be one of: company, foreigner, israeli)", s)
}

// Gender selects the grammatical form of the notary text
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender parses a gender label. Anything other than "female" is male.
func ParseGender(s string) Gender {
	if strings.EqualFold(strings.TrimSpace(s), string(GenderFemale)) {
		return GenderFemale
	}
	return GenderMale
}

// Signer is the person the declaration is signed for
type Signer struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Gender Gender `json:"gender"`
}

// Detection is the outcome of classifying a document
type Detection struct {
	Path     string   `json:"path"`
	Category Category `json:"category"`
	Page     int      `json:"page"`              // 1-based page that matched, 0 for the default
	Keyword  string   `json:"keyword,omitempty"` // empty when no keyword matched
	Pages    int      `json:"pages"`
}

// Matched reports whether a keyword decided the category
func (d *Detection) Matched() bool {
	return d.Keyword != ""
}

// SignRequest holds the inputs of a signing call
type SignRequest struct {
	Signer     Signer
	Category   Category
	SourcePath string
	OutputDir  string
	Date       time.Time // zero means today
}

// SignResult describes the file produced by a signing call
type SignResult struct {
	OutputPath string   `json:"output_path"`
	Category   Category `json:"category"`
	Pages      int      `json:"pages"`
	Flattened  bool     `json:"flattened"`
}
