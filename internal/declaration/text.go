package declaration

import (
	"fmt"
	"time"
	"unicode"
)

// DateLayout is the date format printed in the notary text (DD-MM-YYYY)
const DateLayout = "02-01-2006"

// genderTerms are the words of the notary text that agree with the signer
type genderTerms struct {
	Title     string
	Known     string
	Warned    string
	Pronoun   string
	Expected  string
	Confirmed string
	Signed    string
}

var termsByGender = map[Gender]genderTerms{
	GenderMale: {
		Title: "מר", Known: "המוכר", Warned: "שהוזהר",
		Pronoun: "עליו", Expected: "צפוי", Confirmed: "אישר", Signed: "חתם",
	},
	GenderFemale: {
		Title: "גב", Known: "המוכרת", Warned: "שהוזהרה",
		Pronoun: "עליה", Expected: "צפויה", Confirmed: "אישרה", Signed: "חתמה",
	},
}

// NotaryLines builds the declaration text in logical (reading) order
func NotaryLines(date time.Time, signer Signer) []string {
	terms, ok := termsByGender[signer.Gender]
	if !ok {
		terms = termsByGender[GenderMale]
	}
	day := date.Format(DateLayout)

	// The parentheses on the sixth line are written mirrored; they come out
	// the right way round after VisualOrder.
	return []string{
		fmt.Sprintf("הריני מאשרת כי ביום %s הופיע בפני", day),
		`עו"ד מירי רז במשרדי שברחוב השרון 1 קריית שדה התעופה`,
		fmt.Sprintf("%s %s ת.ז %s %s לי אישית,", terms.Title, signer.Name, signer.ID, terms.Known),
		fmt.Sprintf("ולאחר %s כי %s לאמר את האמת אחרת יהיה", terms.Warned, terms.Pronoun),
		fmt.Sprintf("%s לעונשים הקבועים בחוק אם לא יעשה כן,", terms.Expected),
		fmt.Sprintf("%s את נכונות ההצהרה ) %s עליה בפני (", terms.Confirmed, terms.Signed),
		"**************************************",
		"מירי רז יוקל מ.ר 23145",
	}
}

// notaryTemplate is the fixed text of both gendered variants, with digits
// standing in for the signer's details
func notaryTemplate() []string {
	var lines []string
	for _, g := range []Gender{GenderMale, GenderFemale} {
		lines = append(lines, NotaryLines(time.Time{}, Signer{ID: "0123456789", Gender: g})...)
	}
	return lines
}

// VisualOrder converts a right-to-left line into the left-to-right glyph
// order a PDF text operator draws. The line is reversed as a whole, then
// each run of left-to-right characters (digits and Latin letters, plus the
// separators between them) is turned back so dates, IDs and Latin names
// keep their reading order.
func VisualOrder(line string) string {
	src := []rune(line)
	out := make([]rune, len(src))
	for i, r := range src {
		out[len(src)-1-i] = r
	}

	for i := 0; i < len(out); {
		if !isLTR(out[i]) {
			i++
			continue
		}
		end := i + 1
		for j := i + 1; j < len(out); j++ {
			if isLTR(out[j]) {
				end = j + 1
				continue
			}
			if !isRunJoiner(out[j]) {
				break
			}
		}
		reverseRunes(out[i:end])
		i = end
	}

	return string(out)
}

func isLTR(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	return unicode.IsLetter(r) && !unicode.In(r, unicode.Hebrew, unicode.Arabic)
}

// isRunJoiner reports separators that stay inside a left-to-right run when
// surrounded by left-to-right characters
func isRunJoiner(r rune) bool {
	switch r {
	case ' ', '-', '.', '/', ':', ',', '\'':
		return true
	}
	return false
}

func reverseRunes(r []rune) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}
