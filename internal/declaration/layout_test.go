package declaration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotaryOverlay(t *testing.T) {
	lines := []string{"שורה 1", "שורה 2", "שורה 3"}
	marks := notaryOverlay(lines, "DejaVuSans")
	require.Len(t, marks, 3)

	for i, m := range marks {
		assert.Equal(t, VisualOrder(lines[i]), m.Text)
		assert.Equal(t, "DejaVuSans", m.FontName)
		assert.Equal(t, notaryFontSize, m.FontSize)
		assert.Equal(t, notaryCentreX, m.OffsetX)
		assert.InDelta(t, notaryFirstLineY-float64(i)*notaryLineHeight, m.OffsetY, 0.001)
	}
}

func TestSignatureImages(t *testing.T) {
	tests := []struct {
		category Category
		stampTop float64
	}{
		{CategoryCompany, 324},
		{CategoryForeigner, 655.2},
		{CategoryIsraeli, 594},
	}

	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			marks := signatureImages(tt.category, "sig.png", "stamp.png")
			require.Len(t, marks, 2)

			assert.Equal(t, "sig.png", marks[0].Path)
			assert.InDelta(t, 126, marks[0].Left, 0.001)
			assert.InDelta(t, 475.2, marks[0].Top, 0.001)
			assert.InDelta(t, 216, marks[0].Width, 0.001)

			assert.Equal(t, "stamp.png", marks[1].Path)
			assert.InDelta(t, -10.8, marks[1].Left, 0.001)
			assert.InDelta(t, tt.stampTop, marks[1].Top, 0.001)
			assert.InDelta(t, 234, marks[1].Width, 0.001)
		})
	}
}

func TestSignaturePixels(t *testing.T) {
	marks := signaturePixels(CategoryForeigner, "sig.png", "stamp.png")
	require.Len(t, marks, 2)
	assert.Equal(t, 350, marks[0].X)
	assert.Equal(t, 1320, marks[0].Y)
	assert.Equal(t, 600, marks[0].Size)
	assert.Equal(t, -30, marks[1].X)
	assert.Equal(t, 1820, marks[1].Y)
	assert.Equal(t, 650, marks[1].Size)

	// without a known category only the notary signature is placed
	assert.Len(t, signaturePixels(CategoryUnknown, "sig.png", "stamp.png"), 1)
	assert.Len(t, signatureImages(CategoryUnknown, "sig.png", "stamp.png"), 1)
}
