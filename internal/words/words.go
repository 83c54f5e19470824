// Package words renders integer rupee amounts as English words on the
// Indian numbering scale (thousand, lakh, crore).
package words

import (
	"strconv"
	"strings"

	"github.com/patchlibrary/feedesk/internal/common"
)

// MaxConvertible is the largest amount the scale table covers.
// Amounts past the crore scale word are rejected rather than truncated.
const MaxConvertible int64 = 9_999_999_999

var onesWords = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tensWords = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// InRupees converts a non-negative integer rupee amount to its words form
// suffixed with "Rupees Only". Zero converts to the bare word "Zero".
func InRupees(amount int64) (string, error) {
	if amount < 0 {
		return "", common.NewValidationError("amount", strconv.FormatInt(amount, 10), "amount must not be negative")
	}
	if amount > MaxConvertible {
		return "", common.NewValidationError("amount", strconv.FormatInt(amount, 10), "amount exceeds the crore scale")
	}
	if amount == 0 {
		return "Zero", nil
	}

	crore := amount / 1_00_00_000
	lakh := (amount / 1_00_000) % 100
	thousand := (amount / 1_000) % 100
	ones := amount % 1_000

	var parts []string
	if crore > 0 {
		parts = appendBelowThousand(parts, crore)
		parts = append(parts, "Crore")
	}
	if lakh > 0 {
		parts = appendBelowThousand(parts, lakh)
		parts = append(parts, "Lakh")
	}
	if thousand > 0 {
		parts = appendBelowThousand(parts, thousand)
		parts = append(parts, "Thousand")
	}
	parts = appendBelowThousand(parts, ones)
	parts = append(parts, "Rupees", "Only")
	return strings.Join(parts, " "), nil
}

// appendBelowThousand renders 0 < n < 1000 as hundreds, then a teen word
// or tens word plus ones word.
func appendBelowThousand(parts []string, n int64) []string {
	if h := n / 100; h > 0 {
		parts = append(parts, onesWords[h], "Hundred")
	}
	switch rem := n % 100; {
	case rem >= 20:
		parts = append(parts, tensWords[rem/10])
		if unit := rem % 10; unit > 0 {
			parts = append(parts, onesWords[unit])
		}
	case rem > 0:
		parts = append(parts, onesWords[rem])
	}
	return parts
}
