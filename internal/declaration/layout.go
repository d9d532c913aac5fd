package declaration

import "github.com/a3tai/declaration-signer/internal/pdf"

// Text block geometry, in points
const (
	notaryFontSize   = 12
	notaryLineHeight = 14.0
	notaryFirstLineY = 300.0  // baseline of the first line above the page bottom
	notaryCentreX    = -100.0 // horizontal shift of the line centre from the page centre
)

// pixelsToPoints converts 200 dpi raster coordinates to points
const pixelsToPoints = 72.0 / pdf.DefaultDPI

// Placement of the signature images in 200 dpi pixels, measured from the
// top-left corner of the page. Both images are drawn as squares of the
// given size.
const (
	signatureSizePx = 600
	signatureXPx    = 350
	signatureYPx    = 1320

	stampSizePx = 650
	stampXPx    = -30
)

// stampYPx is the top of the second placeholder, which depends on where the
// signer's block sits on each form
var stampYPx = map[Category]int{
	CategoryForeigner: 1820,
	CategoryCompany:   900,
	CategoryIsraeli:   1650,
}

// notaryOverlay lays out the notary text on page 1
func notaryOverlay(lines []string, fontName string) []pdf.TextMark {
	marks := make([]pdf.TextMark, 0, len(lines))
	y := notaryFirstLineY
	for _, line := range lines {
		marks = append(marks, pdf.TextMark{
			Text:     VisualOrder(line),
			FontName: fontName,
			FontSize: notaryFontSize,
			OffsetX:  notaryCentreX,
			OffsetY:  y,
		})
		y -= notaryLineHeight
	}
	return marks
}

// signatureImages returns the vector placement of both placeholders
func signatureImages(category Category, signaturePath, stampPath string) []pdf.ImageMark {
	marks := []pdf.ImageMark{{
		Path:  signaturePath,
		Left:  signatureXPx * pixelsToPoints,
		Top:   signatureYPx * pixelsToPoints,
		Width: signatureSizePx * pixelsToPoints,
	}}
	if y, ok := stampYPx[category]; ok {
		marks = append(marks, pdf.ImageMark{
			Path:  stampPath,
			Left:  stampXPx * pixelsToPoints,
			Top:   float64(y) * pixelsToPoints,
			Width: stampSizePx * pixelsToPoints,
		})
	}
	return marks
}

// signaturePixels returns the raster placement of both placeholders
func signaturePixels(category Category, signaturePath, stampPath string) []pdf.PixelMark {
	marks := []pdf.PixelMark{{
		Path: signaturePath,
		X:    signatureXPx,
		Y:    signatureYPx,
		Size: signatureSizePx,
	}}
	if y, ok := stampYPx[category]; ok {
		marks = append(marks, pdf.PixelMark{
			Path: stampPath,
			X:    stampXPx,
			Y:    y,
			Size: stampSizePx,
		})
	}
	return marks
}
