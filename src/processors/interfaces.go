package processors

import (
	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/models"
)

// MergeProcessor joins the quotes sheet with the yearly sales sheets into one
// record per quote, resolving status and discarding repeated sale rows.
type MergeProcessor interface {
	Merge(ds *models.RawDataset) []models.UnifiedQuoteRecord
}

// ReconciliationProcessor turns raw client-sheet rows into settled ledger
// entries: credits and payments applied against the invoices they reference,
// overdue days and aging computed per entry.
type ReconciliationProcessor interface {
	Reconcile(ds *models.RawDataset) []models.LedgerEntry
}

// KPIProcessor rolls the unified records and reconciled ledger up into the
// dashboard aggregates.
type KPIProcessor interface {
	Calculate(quotes []models.UnifiedQuoteRecord, ledger []models.LedgerEntry, audit map[string]decimal.Decimal) models.KPIResult
}

// UnificationSuggestion groups client-name spellings that likely refer to the
// same company. Canonical is the suggested surviving name.
type UnificationSuggestion struct {
	Canonical string   `json:"canonical"`
	Variants  []string `json:"variants"`
}

// UnificationProcessor detects near-duplicate client names and rewrites
// records according to saved rename rules. Apply returns renamed copies; the
// inputs are never mutated.
type UnificationProcessor interface {
	Suggest(names []string) []UnificationSuggestion
	Apply(rules map[string]string, quotes []models.UnifiedQuoteRecord, ledger []models.LedgerEntry) ([]models.UnifiedQuoteRecord, []models.LedgerEntry)
}
