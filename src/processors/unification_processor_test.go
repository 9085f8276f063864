package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cobranzas/backend/src/models"
)

func TestSuggestClustersTypos(t *testing.T) {
	names := []string{
		"ABSA - LINCOLN",
		"ABSA - LINCOLN",
		"ABSA - LINCONL",
		"TRANSPORTES LOPEZ",
		"GOOGLE",
		"GOOGLE INC",
	}

	suggestions := NewUnificationProcessor().Suggest(names)
	require.Len(t, suggestions, 2)

	absa := suggestions[0]
	assert.Equal(t, "ABSA - LINCOLN", absa.Canonical)
	assert.Equal(t, []string{"ABSA - LINCONL"}, absa.Variants)

	google := suggestions[1]
	assert.Equal(t, "GOOGLE", google.Canonical)
	assert.Equal(t, []string{"GOOGLE INC"}, google.Variants)
}

func TestSuggestCanonicalIsMostFrequentSpelling(t *testing.T) {
	names := []string{"ACME SA", "ACME S.A.", "ACME S.A.", "ACME S.A."}

	suggestions := NewUnificationProcessor().Suggest(names)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "ACME S.A.", suggestions[0].Canonical)
	assert.Equal(t, []string{"ACME SA"}, suggestions[0].Variants)
}

func TestSuggestIgnoresSingletonsAndBlanks(t *testing.T) {
	suggestions := NewUnificationProcessor().Suggest([]string{"ACME SA", "", "  ", "ZETA SRL"})
	assert.Empty(t, suggestions)
}

func TestSimilarNames(t *testing.T) {
	assert.True(t, similarNames("ABSA - LINCOLN", "ABSA - LINCONL"))
	assert.True(t, similarNames("acme sa", "ACME S.A."))
	// A shared legal-form suffix is not a match when first letters differ.
	assert.False(t, similarNames("ACME SA", "ZETA SA"))
	// Comparable prefixes but wildly different lengths stay apart.
	assert.False(t, similarNames("A", "A MUY LARGO NOMBRE SRL"))
	assert.False(t, similarNames("", "ACME"))
}

func TestApplyRewritesBothCollections(t *testing.T) {
	rules := map[string]string{
		"ABSA - LINCONL": "ABSA - LINCOLN",
		"VACIO":          "",
	}
	quotes := []models.UnifiedQuoteRecord{
		{Client: "ABSA - LINCONL", Amount: decimal.NewFromInt(100)},
		{Client: "VACIO"},
		{Client: "TRANSPORTES LOPEZ"},
	}
	ledger := []models.LedgerEntry{
		{Client: "ABSA - LINCONL"},
	}

	outQuotes, outLedger := NewUnificationProcessor().Apply(rules, quotes, ledger)

	assert.Equal(t, "ABSA - LINCOLN", outQuotes[0].Client)
	// Empty targets never erase a name.
	assert.Equal(t, "VACIO", outQuotes[1].Client)
	assert.Equal(t, "TRANSPORTES LOPEZ", outQuotes[2].Client)
	assert.Equal(t, "ABSA - LINCOLN", outLedger[0].Client)

	// The inputs stay as they were.
	assert.Equal(t, "ABSA - LINCONL", quotes[0].Client)
	assert.Equal(t, "ABSA - LINCONL", ledger[0].Client)
}
