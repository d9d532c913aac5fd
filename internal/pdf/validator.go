package pdf

import (
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
)

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// relaxedConfiguration is the pdfcpu configuration used for every read.
// Declarations are often produced by scanners and office suites that emit
// slightly malformed files.
func relaxedConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// CheckFile performs the cheap checks that do not parse the document
func (v *Validator) CheckFile(filePath string) error {
	if filePath == "" {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return pdferrors.New(pdferrors.ErrorTypeSourceUnreadable, "file does not exist").WithPath(filePath)
	}
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeSourceUnreadable, "cannot access file", err).WithPath(filePath)
	}

	return v.ValidateFileInfo(filePath, fileInfo)
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return pdferrors.New(pdferrors.ErrorTypeSourceUnreadable, "path is a directory, not a file").WithPath(filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return pdferrors.New(pdferrors.ErrorTypeSourceUnreadable, "file is not a PDF").WithPath(filePath)
	}

	if fileInfo.Size() == 0 {
		return pdferrors.New(pdferrors.ErrorTypeSourceUnreadable, "file is empty").WithPath(filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return pdferrors.Newf(pdferrors.ErrorTypeSourceUnreadable,
			"file too large: %d bytes (max: %d bytes)", fileInfo.Size(), v.maxFileSize).WithPath(filePath)
	}

	return nil
}

// ValidatePDF checks the file and parses it with pdfcpu
func (v *Validator) ValidatePDF(filePath string) error {
	if err := v.CheckFile(filePath); err != nil {
		return err
	}

	if err := api.ValidateFile(filePath, relaxedConfiguration()); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeSourceUnreadable, "invalid PDF file", err).WithPath(filePath)
	}

	return nil
}

// PageCount returns the number of pages of a PDF file
func PageCount(filePath string) (int, error) {
	n, err := api.PageCountFile(filePath)
	if err != nil {
		return 0, pdferrors.Wrap(pdferrors.ErrorTypeSourceUnreadable, "failed to count pages", err).WithPath(filePath)
	}
	return n, nil
}
