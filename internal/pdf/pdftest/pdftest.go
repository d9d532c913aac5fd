// Package pdftest builds small PDF and PNG fixtures for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"
)

// TextPDF returns a PDF with one page per entry of pages. Every page shows
// its text with a single Tj operator. The font carries a ToUnicode map so the
// text, Hebrew included, is extracted back unchanged.
func TextPDF(pages ...string) []byte {
	codes := map[rune]byte{}
	var order []rune
	for _, text := range pages {
		for _, r := range text {
			if _, ok := codes[r]; ok {
				continue
			}
			if len(order) == 255 {
				panic("pdftest: more than 255 distinct characters")
			}
			order = append(order, r)
			codes[r] = byte(len(order))
		}
	}

	var offsets []int
	out := "%PDF-1.4\n"
	obj := func(body string) {
		offsets = append(offsets, len(out))
		out += fmt.Sprintf("%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	stream := func(data string) string {
		return fmt.Sprintf("<<\n/Length %d\n>>\nstream\n%s\nendstream", len(data), data)
	}

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}

	// 1 catalog, 2 pages, 3 font, 4 ToUnicode map, then page/content pairs
	obj("<<\n/Type /Catalog\n/Pages 2 0 R\n>>")
	obj(fmt.Sprintf("<<\n/Type /Pages\n/Kids [%s]\n/Count %d\n>>", strings.Join(kids, " "), len(pages)))
	obj("<<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n/ToUnicode 4 0 R\n>>")
	obj(stream(toUnicodeMap(order)))

	for i, text := range pages {
		obj(fmt.Sprintf("<<\n/Type /Page\n/Parent 2 0 R\n/MediaBox [0 0 595 842]\n/Contents %d 0 R\n"+
			"/Resources <<\n/Font <<\n/F1 3 0 R\n>>\n>>\n>>", 6+2*i))

		var hex strings.Builder
		for _, r := range text {
			fmt.Fprintf(&hex, "%02X", codes[r])
		}
		content := "BT\n/F1 12 Tf\n72 720 Td\n"
		if hex.Len() > 0 {
			content += "<" + hex.String() + "> Tj\n"
		}
		content += "ET"
		obj(stream(content))
	}

	xrefStart := len(out)
	out += fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		out += fmt.Sprintf("%010d 00000 n \n", off)
	}
	out += fmt.Sprintf("trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n", len(offsets)+1, xrefStart)
	out += "%%EOF\n"

	return []byte(out)
}

func toUnicodeMap(order []rune) string {
	var b strings.Builder
	b.WriteString("1 begincodespacerange\n<00> <FF>\nendcodespacerange\n")
	if len(order) > 0 {
		fmt.Fprintf(&b, "%d beginbfchar\n", len(order))
		for i, r := range order {
			fmt.Fprintf(&b, "<%02X> <%04X>\n", i+1, r)
		}
		b.WriteString("endbfchar\n")
	}
	return b.String()
}

// WriteTextPDF writes TextPDF(pages...) to dir/name and returns the path
func WriteTextPDF(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, TextPDF(pages...), 0o644))
	return path
}

// WritePNG writes a w×h image filled with c
func WritePNG(t *testing.T, path string, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// WriteImagePDF writes a PDF with the given number of image-only pages, so
// it has no text layer
func WriteImagePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	imgs := make([]string, pages)
	for i := range imgs {
		imgs[i] = WritePNG(t, filepath.Join(dir, fmt.Sprintf(".page-%d.png", i)), 40, 60,
			color.RGBA{R: uint8(40 * i), G: 120, B: 200, A: 255})
	}

	imp, err := api.Import("form:A4, pos:full", types.POINTS)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, api.ImportImagesFile(imgs, path, imp, model.NewDefaultConfiguration()))
	for _, img := range imgs {
		os.Remove(img)
	}
	return path
}

const (
	pdfcpuModule      = "github.com/pdfcpu/pdfcpu"
	pdfcpuVersion     = "v0.11.0"
	hebrewFontFile    = "unifont-13.0.03.ttf"
	hebrewFontEnvName = "SIGNDOC_TEST_FONT"
)

// HebrewFont returns a TrueType font with Hebrew glyphs: the file named by
// SIGNDOC_TEST_FONT, or the unifont pdfcpu ships with its test data in the
// module cache. The test is skipped when neither exists.
func HebrewFont(t *testing.T) string {
	t.Helper()
	if p := os.Getenv(hebrewFontEnvName); p != "" {
		return p
	}

	version := pdfcpuVersion
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == pdfcpuModule {
				version = dep.Version
			}
		}
	}

	for _, cache := range moduleCaches() {
		p := filepath.Join(cache, "github.com", "pdfcpu", "pdfcpu@"+version, "pkg", "testdata", "fonts", hebrewFontFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Skipf("no Hebrew TrueType font found, set %s", hebrewFontEnvName)
	return ""
}

func moduleCaches() []string {
	var dirs []string
	if c := os.Getenv("GOMODCACHE"); c != "" {
		dirs = append(dirs, c)
	}
	for _, gopath := range filepath.SplitList(os.Getenv("GOPATH")) {
		dirs = append(dirs, filepath.Join(gopath, "pkg", "mod"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "pkg", "mod"))
	}
	return dirs
}

// FormContent returns the decoded content streams of every form XObject in
// file. pdfcpu draws stamps inside form XObjects.
func FormContent(t *testing.T, file string) []byte {
	t.Helper()
	ctx, err := api.ReadContextFile(file)
	require.NoError(t, err)

	var buf bytes.Buffer
	for _, entry := range ctx.XRefTable.Table {
		if entry == nil || entry.Free {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if st := sd.Subtype(); st == nil || *st != "Form" {
			continue
		}
		require.NoError(t, sd.Decode())
		buf.Write(sd.Content)
	}
	return buf.Bytes()
}

// EncodedText returns s the way pdfcpu writes it into a text operator when
// drawn with the installed user font fontName
func EncodedText(fontName, s string) string {
	xrt := &model.XRefTable{UsedGIDs: map[string]map[uint16]bool{}}
	return model.PrepBytes(xrt, s, fontName, true, false, false)
}
