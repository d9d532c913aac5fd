package web

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/a3tai/declaration-signer/internal/config"
	"github.com/a3tai/declaration-signer/internal/declaration"
	"github.com/a3tai/declaration-signer/internal/pdf/security"
)

// DeclarationService is the part of declaration.Service the form uses
type DeclarationService interface {
	DetectFile(path string) (*declaration.Detection, error)
	Sign(ctx context.Context, req declaration.SignRequest) (*declaration.SignResult, error)
}

// PreferencesStore loads and saves the remembered form values
type PreferencesStore interface {
	Load() (config.Preferences, error)
	Save(prefs config.Preferences) error
}

// DetectInput is the body of POST /detect
type DetectInput struct {
	Path string `form:"path" json:"path" binding:"required"`
}

// SignInput is the body of POST /sign
type SignInput struct {
	Name      string `form:"name" json:"name" binding:"required"`
	ID        string `form:"id" json:"id" binding:"required"`
	Gender    string `form:"gender" json:"gender" binding:"required,oneof=male female"`
	Path      string `form:"path" json:"path" binding:"required"`
	Type      string `form:"type" json:"type"`
	OutputDir string `form:"output_dir" json:"output_dir"`
}

// DetectResponse is the data of a successful detection
type DetectResponse struct {
	Category declaration.Category `json:"category"`
	Page     int                  `json:"page"`
	Keyword  string               `json:"keyword,omitempty"`
}

// SignResponse is the data of a successful signing
type SignResponse struct {
	OutputPath string               `json:"output_path"`
	Pages      int                  `json:"pages"`
	Category   declaration.Category `json:"category"`
	Detected   bool                 `json:"detected"`
}

// Handler serves the signing form
type Handler struct {
	service   DeclarationService
	prefs     PreferencesStore
	paths     *security.PathValidator
	outputDir string
	version   string
}

// NewHandler creates a new Handler. Source paths are resolved inside paths'
// root; outputDir is used when neither the request nor the saved
// preferences name an output folder.
func NewHandler(service DeclarationService, prefs PreferencesStore, paths *security.PathValidator,
	outputDir, version string) *Handler {
	return &Handler{
		service:   service,
		prefs:     prefs,
		paths:     paths,
		outputDir: outputDir,
		version:   version,
	}
}

// Form handles GET /
func (h *Handler) Form(c *gin.Context) {
	prefs, err := h.prefs.Load()
	if err != nil {
		log.Printf("loading preferences: %v", err)
	}
	if prefs.OutputDir == "" {
		prefs.OutputDir = h.outputDir
	}

	c.HTML(http.StatusOK, formTemplate, gin.H{
		"Prefs":      prefs,
		"WorkDir":    h.paths.Root(),
		"Version":    h.version,
		"Categories": declaration.Categories,
	})
}

// Detect handles POST /detect
func (h *Handler) Detect(c *gin.Context) {
	var input DetectInput
	if err := c.ShouldBind(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	path, err := h.paths.NormalizePath(input.Path)
	if err != nil {
		HandleError(c, err)
		return
	}

	det, err := h.service.DetectFile(path)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, DetectResponse{Category: det.Category, Page: det.Page, Keyword: det.Keyword})
}

// Sign handles POST /sign. The form values are remembered after a
// successful signing.
func (h *Handler) Sign(c *gin.Context) {
	var input SignInput
	if err := c.ShouldBind(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	source, err := h.paths.NormalizePath(input.Path)
	if err != nil {
		HandleError(c, err)
		return
	}

	outputDir := strings.TrimSpace(input.OutputDir)
	if outputDir == "" {
		outputDir = h.outputDir
	}
	if abs, err := filepath.Abs(outputDir); err == nil {
		outputDir = abs
	}

	category := declaration.CategoryUnknown
	detected := false
	if strings.TrimSpace(input.Type) != "" {
		if category, err = declaration.ParseCategory(input.Type); err != nil {
			HandleError(c, err)
			return
		}
	} else {
		det, err := h.service.DetectFile(source)
		if err != nil {
			HandleError(c, err)
			return
		}
		category = det.Category
		detected = true
	}

	gender := declaration.ParseGender(input.Gender)
	result, err := h.service.Sign(c.Request.Context(), declaration.SignRequest{
		Signer:     declaration.Signer{Name: input.Name, ID: input.ID, Gender: gender},
		Category:   category,
		SourcePath: source,
		OutputDir:  outputDir,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	if err := h.prefs.Save(config.Preferences{
		Name:      strings.TrimSpace(input.Name),
		ID:        strings.TrimSpace(input.ID),
		Gender:    string(gender),
		OutputDir: outputDir,
	}); err != nil {
		log.Printf("saving preferences: %v", err)
	}

	RespondOK(c, SignResponse{
		OutputPath: result.OutputPath,
		Pages:      result.Pages,
		Category:   result.Category,
		Detected:   detected,
	})
}

// Liveness handles GET /healthz
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
