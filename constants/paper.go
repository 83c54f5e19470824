package constants

import "strings"

// PaperSize selects the page geometry a receipt is rendered onto.
type PaperSize string

const (
	PaperA4     PaperSize = "A4"
	PaperLetter PaperSize = "Letter"
)

// PageSizeFlag maps a PaperSize onto the value wkhtmltopdf expects for its
// --page-size flag. Unknown sizes fall back to A4.
func PageSizeFlag(p PaperSize) string {
	switch p {
	case PaperLetter:
		return "Letter"
	default:
		return "A4"
	}
}

// ParsePaperSize accepts loose input ("a4", "letter"). Unmatched input
// falls back to A4, reported by the second return.
func ParsePaperSize(input string) (PaperSize, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "a4":
		return PaperA4, true
	case "letter":
		return PaperLetter, true
	}
	return PaperA4, false
}
