package pdf

import (
	"fmt"
	"image"
	_ "image/jpeg" // decoders for signature assets
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
)

const (
	// DefaultFontName is a pdfcpu core font, used when no user font is
	// installed. It has no Hebrew glyphs.
	DefaultFontName = "Helvetica"

	// A4 dimensions in points
	A4Width  = 595.28
	A4Height = 841.89
)

// Stamper merges overlays onto PDF pages using pdfcpu stamps
type Stamper struct {
	conf *model.Configuration
}

// NewStamper creates a new stamper
func NewStamper() *Stamper {
	return &Stamper{conf: relaxedConfiguration()}
}

// InstallFont registers a TrueType font with pdfcpu so it can be referenced
// by name in text marks. It returns the name pdfcpu knows the font by, which
// is its PostScript name rather than the file name.
func InstallFont(fontFile string) (string, error) {
	if _, err := os.Stat(fontFile); err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "font file not found", err).WithPath(fontFile)
	}

	// the default configuration sets up pdfcpu's user font directory
	relaxedConfiguration()

	scratch, err := os.MkdirTemp("", "declaration-font-*")
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "cannot create scratch directory", err).WithPath(fontFile)
	}
	defer os.RemoveAll(scratch)

	if err := font.InstallTrueTypeFont(scratch, fontFile); err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "not a usable TrueType font", err).WithPath(fontFile)
	}
	gob, err := installedGob(scratch)
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "cannot read installed font", err).WithPath(fontFile)
	}

	// other processes may load the shared font directory at any time
	if err := renameInto(filepath.Join(scratch, gob), font.UserFontDir); err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "failed to install font", err).WithPath(fontFile)
	}
	if err := font.LoadUserFonts(); err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "failed to load installed fonts", err).WithPath(fontFile)
	}

	name := strings.TrimSuffix(gob, ".gob")
	if !font.IsUserFont(name) {
		return "", pdferrors.Newf(pdferrors.ErrorTypeAssetMissing, "font %s was not registered", name).WithPath(fontFile)
	}
	return name, nil
}

// installedGob returns the file pdfcpu wrote into dir, named after the
// font's PostScript name
func installedGob(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".gob" {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("no font written to %s", dir)
}

// renameInto copies src into dir under a temporary name and renames it to
// its final name, so readers of dir never see a partial file
func renameInto(src, dir string) error {
	tmp, err := os.CreateTemp(dir, ".font-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := copyFile(src, tmpName); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, filepath.Base(src))); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// CheckFont reports an AssetMissing error unless fontName can draw every
// visible rune of lines. Core fonts only carry Latin-1.
func (s *Stamper) CheckFont(fontName string, lines ...string) error {
	var covers func(r rune) bool
	switch {
	case font.IsCoreFont(fontName):
		covers = func(r rune) bool { return r <= unicode.MaxLatin1 }
	case font.IsUserFont(fontName):
		font.UserFontMetricsLock.RLock()
		chars := font.UserFontMetrics[fontName].Chars
		font.UserFontMetricsLock.RUnlock()
		covers = func(r rune) bool {
			_, ok := chars[uint32(r)]
			return ok
		}
	default:
		return pdferrors.Newf(pdferrors.ErrorTypeAssetMissing, "font %s is not installed", fontName)
	}

	for _, line := range lines {
		for _, r := range line {
			if unicode.IsSpace(r) || unicode.IsControl(r) || covers(r) {
				continue
			}
			return pdferrors.Newf(pdferrors.ErrorTypeAssetMissing, "font %s has no glyph for %q (U+%04X)", fontName, r, r)
		}
	}
	return nil
}

// ImageSize decodes only the header of an image file
func ImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "cannot open image", err).WithPath(path)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "cannot decode image", err).WithPath(path)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, pdferrors.New(pdferrors.ErrorTypeAssetMissing, "image has no pixels").WithPath(path)
	}
	return cfg.Width, cfg.Height, nil
}

// Apply copies inFile to outFile and stamps the overlay onto outFile.
// inFile is never modified.
func (s *Stamper) Apply(inFile, outFile string, ov Overlay) error {
	if err := copyFile(inFile, outFile); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "failed to copy PDF", err).WithPath(outFile)
	}
	return s.ApplyInPlace(outFile, ov)
}

// ApplyInPlace stamps the overlay directly onto file
func (s *Stamper) ApplyInPlace(file string, ov Overlay) error {
	page := ov.Page
	if page < 1 {
		page = 1
	}
	pages := []string{strconv.Itoa(page)}

	scratch, err := os.MkdirTemp("", "declaration-stamp-*")
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "cannot create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	watermarks, err := s.watermarks(ov, scratch)
	if err != nil {
		return err
	}

	for _, wm := range watermarks {
		if err := api.AddWatermarksFile(file, "", pages, wm, s.conf); err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "failed to stamp page", err).WithPath(file)
		}
	}

	return nil
}

// watermarks builds all pdfcpu watermarks before touching the file so a bad
// asset fails early. Squared image copies are written to scratch.
func (s *Stamper) watermarks(ov Overlay, scratch string) ([]*model.Watermark, error) {
	out := make([]*model.Watermark, 0, len(ov.Texts)+len(ov.Images))

	for _, t := range ov.Texts {
		if t.Text == "" {
			continue
		}
		wm, err := pdfcpu.ParseTextWatermarkDetails(t.Text, textDescription(t), true, types.POINTS)
		if err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "invalid text stamp", err)
		}
		out = append(out, wm)
	}

	for i, img := range ov.Images {
		path, side, err := squareImage(img.Path, filepath.Join(scratch, fmt.Sprintf("mark%d.png", i)))
		if err != nil {
			return nil, err
		}
		scale := img.Width / float64(side)
		wm, err := pdfcpu.ParseImageWatermarkDetails(path, imageDescription(img, scale), true, types.POINTS)
		if err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeAssetMissing, "invalid signature image", err).WithPath(img.Path)
		}
		out = append(out, wm)
	}

	return out, nil
}

// squareImage returns a path to a square version of the image at path and
// its side in pixels. Non-square images are stretched, like in the raster
// composite, into a copy written to out.
func squareImage(path, out string) (string, int, error) {
	w, h, err := ImageSize(path)
	if err != nil {
		return "", 0, err
	}
	if w == h {
		return path, w, nil
	}

	src, err := loadImage(path)
	if err != nil {
		return "", 0, err
	}
	side := max(w, h)
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	if err := writePNG(dst, out); err != nil {
		return "", 0, err
	}
	return out, side, nil
}

// textDescription anchors the text at bottom-centre and scales it absolutely
// so that points is the real font size
func textDescription(t TextMark) string {
	fontName := t.FontName
	if fontName == "" {
		fontName = DefaultFontName
	}
	fontSize := t.FontSize
	if fontSize <= 0 {
		fontSize = 12
	}
	return fmt.Sprintf("font:%s, points:%d, pos:bc, off:%.2f %.2f, scale:1 abs, rot:0, op:1, fillc:#000000",
		fontName, fontSize, t.OffsetX, t.OffsetY)
}

// imageDescription anchors the image at top-left; pdfcpu offsets grow upward
// so the top distance is negated
func imageDescription(img ImageMark, scale float64) string {
	return fmt.Sprintf("pos:tl, off:%.2f %.2f, scale:%.4f abs, rot:0, op:1", img.Left, -img.Top, scale)
}

// ResizeToA4 scales the selected page of file to A4 in place
func (s *Stamper) ResizeToA4(file string, page int) error {
	res, err := pdfcpu.ParseResizeConfig("form:A4", types.POINTS)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "invalid resize configuration", err)
	}
	if err := api.ResizeFile(file, "", []string{strconv.Itoa(page)}, res, s.conf); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailed, "failed to resize page", err).WithPath(file)
	}
	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
