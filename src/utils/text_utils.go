package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes to NFD and drops the combining marks, so DÉBITO and
// DEBITO compare equal.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeHeader uppercases, trims and de-accents a header cell for synonym
// comparison. Interior spaces are preserved.
func NormalizeHeader(s string) string {
	return strings.ToUpper(strings.TrimSpace(stripAccents(s)))
}

// NormalizeKey collapses a header cell to its tightest comparable form:
// accents stripped, uppercased, all whitespace removed.
// "A Cobrar sin IVA" -> "ACOBRARSINIVA".
func NormalizeKey(s string) string {
	fields := strings.Fields(NormalizeHeader(s))
	return strings.Join(fields, "")
}

// NormalizeClientName is the client-identity form used in content keys:
// uppercased, whitespace removed, but accents preserved because sheet names
// are compared against themselves, not against headers.
func NormalizeClientName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(s))), "")
}
