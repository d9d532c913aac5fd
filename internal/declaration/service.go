package declaration

import (
	"context"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/declaration-signer/internal/pdf"
	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
	"github.com/a3tai/declaration-signer/internal/pdf/security"
)

const defaultMaxFileSize = 100 * 1024 * 1024

// Options configures a Service. It is built once at start-up from the
// application configuration.
type Options struct {
	SignaturePath string // notary's placeholder signature
	StampPath     string // second placeholder, placed per category
	FontFile      string // TrueType font the notary text needs, checked before signing
	FontName      string // pdfcpu font used for the notary text
	NormalizeA4   bool   // scale page 1 to A4 after stamping
	Flatten       bool   // rasterise page 1 and composite the images in pixels
	RendererPath  string // pdftoppm executable or poppler bin directory
	MaxFileSize   int64
	Logger        *log.Logger
	Now           func() time.Time
}

// overlayStamper merges vector overlays onto PDF pages
type overlayStamper interface {
	Apply(inFile, outFile string, ov pdf.Overlay) error
	ResizeToA4(file string, page int) error
	CheckFont(fontName string, lines ...string) error
}

// pageRenderer rasterises a PDF page
type pageRenderer interface {
	Check() error
	RenderPage(ctx context.Context, pdfPath string, page int, workDir string) (image.Image, error)
}

// Service detects declaration types and signs declarations
type Service struct {
	opts      Options
	detector  *Detector
	validator *pdf.Validator
	search    *pdf.Search
	stamper   overlayStamper
	renderer  pageRenderer
	logger    *log.Logger
	now       func() time.Time
}

// NewService creates a service with the given options
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.FontName == "" {
		opts.FontName = pdf.DefaultFontName
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}

	return &Service{
		opts:      opts,
		detector:  NewDetector(opts.MaxFileSize, logger),
		validator: pdf.NewValidator(opts.MaxFileSize),
		search:    pdf.NewSearch(opts.MaxFileSize),
		stamper:   pdf.NewStamper(),
		renderer:  pdf.NewRenderer(opts.RendererPath, pdf.DefaultDPI),
		logger:    logger,
		now:       now,
	}
}

// Options returns the options the service was built with
func (s *Service) Options() Options {
	return s.opts
}

// DetectFile classifies the declaration at path
func (s *Service) DetectFile(path string) (*Detection, error) {
	return s.detector.DetectFile(path)
}

// ListedDocument is a PDF found in a directory together with its category
type ListedDocument struct {
	pdf.FileInfo
	Category Category `json:"category"`
	Error    string   `json:"error,omitempty"`
}

// listWorkers bounds concurrent detections in ListDirectory
const listWorkers = 4

// ListDirectory finds PDFs under dir and detects the category of each one.
// Per-file detection failures are reported in the entry, not returned.
func (s *Service) ListDirectory(ctx context.Context, dir, query string) ([]ListedDocument, error) {
	result, err := s.search.SearchDirectory(pdf.SearchDirectoryRequest{Directory: dir, Query: query})
	if err != nil {
		return nil, err
	}

	docs := make([]ListedDocument, len(result.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listWorkers)

	for i, f := range result.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc := ListedDocument{FileInfo: f}
			det, err := s.detector.DetectFile(f.Path)
			if err != nil {
				doc.Error = err.Error()
			} else {
				doc.Category = det.Category
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// CheckAssets verifies that both placeholder images decode, that the font
// can draw the Hebrew notary text and, in flatten mode, that the renderer is
// available
func (s *Service) CheckAssets() error {
	for _, p := range []string{s.opts.SignaturePath, s.opts.StampPath} {
		if p == "" {
			return pdferrors.New(pdferrors.ErrorTypeAssetMissing, "signature asset path is not configured")
		}
		if _, _, err := pdf.ImageSize(p); err != nil {
			return err
		}
	}
	if s.opts.FontFile != "" {
		if _, err := os.Stat(s.opts.FontFile); err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "font file not found", err).WithPath(s.opts.FontFile)
		}
	}
	if err := s.stamper.CheckFont(s.opts.FontName, notaryTemplate()...); err != nil {
		return err
	}
	if s.opts.Flatten {
		if err := s.renderer.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Sign stamps the notary overlay and placeholder signatures on page 1 of
// the source and writes the result into the output directory. The source is
// never modified; on any failure no output file is left behind.
func (s *Service) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	req.Signer.Name = strings.TrimSpace(req.Signer.Name)
	req.Signer.ID = strings.TrimSpace(req.Signer.ID)

	if err := s.CheckAssets(); err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePDF(req.SourcePath); err != nil {
		return nil, err
	}
	if err := security.EnsureWritableDir(req.OutputDir); err != nil {
		return nil, err
	}

	sourcePages, err := pdf.PageCount(req.SourcePath)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "declaration-sign-*")
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot create work directory", err)
	}
	defer os.RemoveAll(workDir)

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	lines := NotaryLines(date, req.Signer)
	if err := s.stamper.CheckFont(s.opts.FontName, lines...); err != nil {
		return nil, err
	}

	merged, err := s.render(ctx, req, lines, workDir)
	if err != nil {
		return nil, err
	}

	outPages, err := pdf.PageCount(merged)
	if err != nil {
		return nil, err
	}
	if outPages < sourcePages {
		return nil, pdferrors.Newf(pdferrors.ErrorTypeWriteFailed,
			"signed document lost pages: %d of %d", outPages, sourcePages)
	}

	outputPath := filepath.Join(req.OutputDir, OutputName(req.SourcePath, req.Signer, req.Category))
	if err := publish(merged, outputPath); err != nil {
		return nil, err
	}

	s.logger.Printf("signed %s as %s -> %s (%d pages)", req.SourcePath, req.Category, outputPath, outPages)

	return &SignResult{
		OutputPath: outputPath,
		Category:   req.Category,
		Pages:      outPages,
		Flattened:  s.opts.Flatten,
	}, nil
}

// render produces the signed document inside workDir and returns its path
func (s *Service) render(ctx context.Context, req SignRequest, lines []string, workDir string) (string, error) {
	texts := notaryOverlay(lines, s.opts.FontName)
	stamped := filepath.Join(workDir, "stamped.pdf")

	if !s.opts.Flatten {
		ov := pdf.Overlay{
			Page:   1,
			Texts:  texts,
			Images: signatureImages(req.Category, s.opts.SignaturePath, s.opts.StampPath),
		}
		if err := s.stamper.Apply(req.SourcePath, stamped, ov); err != nil {
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if s.opts.NormalizeA4 {
			if err := s.stamper.ResizeToA4(stamped, 1); err != nil {
				return "", err
			}
		}
		return stamped, nil
	}

	if err := s.stamper.Apply(req.SourcePath, stamped, pdf.Overlay{Page: 1, Texts: texts}); err != nil {
		return "", err
	}
	s.logger.Printf("flatten %s: rendering page 1", req.SourcePath)

	raster, err := s.renderer.RenderPage(ctx, stamped, 1, workDir)
	if err != nil {
		return "", err
	}
	composited, err := pdf.Composite(raster, signaturePixels(req.Category, s.opts.SignaturePath, s.opts.StampPath))
	if err != nil {
		return "", err
	}

	firstPage := filepath.Join(workDir, "first.pdf")
	if err := pdf.ImagePageToPDF(composited, workDir, firstPage); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	flattened := filepath.Join(workDir, "flattened.pdf")
	if err := pdf.ReplaceFirstPage(stamped, firstPage, workDir, flattened); err != nil {
		return "", err
	}
	return flattened, nil
}

// validateRequest rejects incomplete requests before any file is touched
func validateRequest(req SignRequest) error {
	switch {
	case strings.TrimSpace(req.Signer.Name) == "":
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "signer name cannot be empty")
	case strings.TrimSpace(req.Signer.ID) == "":
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "signer ID cannot be empty")
	case req.SourcePath == "":
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "source path cannot be empty")
	case req.OutputDir == "":
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "output directory cannot be empty")
	case !req.Category.Valid():
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidInput, "unknown declaration type %q", string(req.Category))
	}
	return nil
}

// publish moves the finished document to outputPath through a temp file in
// the same directory, so readers never see a partial file
func publish(src, outputPath string) error {
	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".signing-*.pdf")
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeOutputNotWritable, "cannot create output file", err).WithPath(dir)
	}
	tmpName := tmp.Name()

	in, err := os.Open(src)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot read signed document", err).WithPath(src)
	}
	defer in.Close()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot write output file", err).WithPath(outputPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot write output file", err).WithPath(outputPath)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		os.Remove(tmpName)
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot move output file into place", err).WithPath(outputPath)
	}
	return nil
}
