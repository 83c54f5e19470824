package message

import "strings"

const countryCode = "91"

// NormalizePhone strips everything but digits, then ensures the Indian
// country code: input already starting with "91" is returned as-is and a
// bare 10-digit number gets "91" prepended. Anything else is returned
// stripped but otherwise untouched; the function never fails and performs
// no further validation.
func NormalizePhone(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, countryCode):
		return digits
	case len(digits) == 10:
		return countryCode + digits
	default:
		return digits
	}
}
