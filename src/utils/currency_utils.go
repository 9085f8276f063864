package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency codes recognized across the workbooks.
const (
	CurrencyARS = "ARS"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// ParseCurrency turns a free-text cell value into a decimal amount. It is a
// total function: anything unparseable yields zero, never an error, because a
// single bad cell must not sink a whole sheet.
//
// Handles both separator conventions:
//
//	"1.234,56"  -> 1234.56 (Latin American)
//	"1,234.56"  -> 1234.56 (US)
//	"(100,00)"  -> -100    (accounting negative)
//	"USD 13.830"-> 13830   (single dot with a 3-digit tail reads as thousands)
//
// The 3-digit-tail rule makes a genuine 3-decimal value like "13.830" (meaning
// 13.83) unrepresentable. That ambiguity is inherent to the source data and
// downstream reconciliation depends on the thousands reading; do not "fix" it.
func ParseCurrency(value string) decimal.Decimal {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero
	}

	accountingNegative := strings.Contains(s, "(") && strings.Contains(s, ")")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || clean == "-" {
		return decimal.Zero
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: whichever separator appears last is the decimal mark.
		if lastDot > lastComma {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case lastDot >= 0:
		parts := strings.Split(clean, ".")
		if len(parts) > 2 {
			// 1.234.567 -> thousands separators throughout.
			clean = strings.ReplaceAll(clean, ".", "")
		} else if len(parts[len(parts)-1]) == 3 {
			// 13.830 -> 13830
			clean = strings.ReplaceAll(clean, ".", "")
		}
		// 13.83 stays a decimal point.
	case lastComma >= 0:
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	res, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	if accountingNegative {
		res = res.Abs().Neg()
	}
	return res
}

// DetectCurrency guesses the currency code embedded in a cell value.
// ARS is the home currency and the default.
func DetectCurrency(value string) string {
	if value == "" {
		return CurrencyARS
	}
	s := strings.ToUpper(value)
	if strings.Contains(s, "USD") || strings.Contains(s, "U$S") ||
		strings.Contains(s, "US$") || strings.Contains(s, "DOLAR") {
		return CurrencyUSD
	}
	if strings.Contains(s, "EUR") {
		return CurrencyEUR
	}
	return CurrencyARS
}
