package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
)

// DefaultDPI matches the resolution the pixel coordinates are expressed in
const DefaultDPI = 200

// Renderer rasterises PDF pages with poppler's pdftoppm
type Renderer struct {
	binary string
	dpi    int
}

// NewRenderer creates a renderer. location may be the pdftoppm executable
// itself or the poppler bin directory that contains it.
func NewRenderer(location string, dpi int) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{binary: resolveBinary(location), dpi: dpi}
}

func resolveBinary(location string) string {
	if location == "" {
		return ""
	}
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		name := "pdftoppm"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		return filepath.Join(location, name)
	}
	return location
}

// Binary returns the resolved executable path
func (r *Renderer) Binary() string {
	return r.binary
}

// Check verifies the renderer executable can be found
func (r *Renderer) Check() error {
	if r.binary == "" {
		return pdferrors.New(pdferrors.ErrorTypeRendererMissing, "renderer path is not configured")
	}
	if _, err := exec.LookPath(r.binary); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeRendererMissing, "renderer binary not found", err).WithPath(r.binary)
	}
	return nil
}

// RenderPage rasterises one page of pdfPath into a PNG inside workDir and
// returns the decoded image
func (r *Renderer) RenderPage(ctx context.Context, pdfPath string, page int, workDir string) (image.Image, error) {
	if err := r.Check(); err != nil {
		return nil, err
	}

	prefix := filepath.Join(workDir, "page")
	pageArg := strconv.Itoa(page)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary,
		"-png", "-r", strconv.Itoa(r.dpi), "-f", pageArg, "-l", pageArg, "-singlefile",
		pdfPath, prefix)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeSourceUnreadable,
			fmt.Sprintf("renderer failed: %s", bytes.TrimSpace(stderr.Bytes())), err).WithPath(pdfPath)
	}

	return decodePNG(prefix + ".png")
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "rendered page missing", err).WithPath(path)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot decode rendered page", err).WithPath(path)
	}
	return img, nil
}

// loadImage decodes any registered image format
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "cannot open image", err).WithPath(path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "cannot decode image", err).WithPath(path)
	}
	return img, nil
}

// Composite pastes each mark, resized to a Size x Size square, over page
// using the mark's alpha channel. Marks may extend past the page edges.
func Composite(page image.Image, marks []PixelMark) (*image.RGBA, error) {
	bounds := page.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), page, bounds.Min, draw.Src)

	for _, m := range marks {
		src, err := loadImage(m.Path)
		if err != nil {
			return nil, err
		}
		target := image.Rect(m.X, m.Y, m.X+m.Size, m.Y+m.Size)
		draw.CatmullRom.Scale(dst, target, src, src.Bounds(), draw.Over, nil)
	}

	return dst, nil
}

// ImagePageToPDF writes img as a single A4 page PDF at outFile
func ImagePageToPDF(img image.Image, workDir, outFile string) error {
	pngPath := filepath.Join(workDir, "composited.png")
	if err := writePNG(img, pngPath); err != nil {
		return err
	}

	imp, err := api.Import("form:A4, pos:full", types.POINTS)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "invalid import configuration", err)
	}
	if err := api.ImportImagesFile([]string{pngPath}, outFile, imp, relaxedConfiguration()); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "failed to build page from image", err).WithPath(outFile)
	}
	return nil
}

// writePNG encodes img to path
func writePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot write image", err).WithPath(path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot encode image", err).WithPath(path)
	}
	if err := f.Close(); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot write image", err).WithPath(path)
	}
	return nil
}

// ReplaceFirstPage writes to outFile the document made of firstPage (a one
// page PDF) followed by pages 2..n of doc
func ReplaceFirstPage(doc, firstPage, workDir, outFile string) error {
	n, err := PageCount(doc)
	if err != nil {
		return err
	}
	conf := relaxedConfiguration()

	if n == 1 {
		if err := copyFile(firstPage, outFile); err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "failed to write output", err).WithPath(outFile)
		}
		return nil
	}

	rest := filepath.Join(workDir, "rest.pdf")
	if err := api.RemovePagesFile(doc, rest, []string{"1"}, conf); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "failed to split document", err).WithPath(doc)
	}
	if err := api.MergeCreateFile([]string{firstPage, rest}, outFile, false, conf); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "failed to merge pages", err).WithPath(outFile)
	}
	return nil
}
