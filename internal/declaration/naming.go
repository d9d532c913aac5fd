package declaration

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"
)

// OutputName returns the file name of the signed copy. It depends only on
// the source file name, the signer's name and ID and the category, so a
// repeated call overwrites the previous result instead of piling up copies.
func OutputName(sourcePath string, signer Signer, category Category) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = sanitizeBase(base)
	if base == "" {
		base = "declaration"
	}

	sum := sha256.Sum256([]byte(strings.Join([]string{
		strings.TrimSpace(signer.Name),
		strings.TrimSpace(signer.ID),
		string(category),
	}, "\x00")))

	return base + "_" + string(category) + "_" + hex.EncodeToString(sum[:4]) + ".pdf"
}

// sanitizeBase keeps letters, digits, '-' and '_' and folds everything else
// to '_'
func sanitizeBase(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
