package constants

import (
	"strings"
)

type PaymentMethod string

const (
	Cash         PaymentMethod = "Cash"
	UPI          PaymentMethod = "UPI"
	Card         PaymentMethod = "Card"
	BankTransfer PaymentMethod = "BankTransfer"
)

var allMethods = []PaymentMethod{
	Cash,
	UPI,
	Card,
	BankTransfer,
}

func MethodsAsStringSlice() []string {
	result := make([]string, len(allMethods))
	for i, m := range allMethods {
		result[i] = string(m)
	}
	return result
}

// CanonicalizeMethod maps loose user input onto a PaymentMethod. The second
// return reports whether the input matched; unmatched input falls back to Cash.
func CanonicalizeMethod(input string) (PaymentMethod, bool) {
	if input == "" {
		return Cash, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]PaymentMethod{
		"gpay":          UPI,
		"google pay":    UPI,
		"phonepe":       UPI,
		"paytm":         UPI,
		"debit card":    Card,
		"credit card":   Card,
		"bank transfer": BankTransfer,
		"neft":          BankTransfer,
		"imps":          BankTransfer,
		"netbanking":    BankTransfer,
	}

	if m, ok := synonyms[normalized]; ok {
		return m, true
	}

	for _, m := range allMethods {
		if normalized == strings.ToLower(string(m)) {
			return m, true
		}
	}

	return Cash, false
}
