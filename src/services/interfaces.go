package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/parsers"
	"github.com/username/cobranzas/backend/src/processors"
)

var (
	// ErrParsingFailed wraps any upload whose workbooks could not produce a
	// single usable record.
	ErrParsingFailed = errors.New("parsing failed")

	// ErrNoDataset is returned when a read endpoint is hit before any upload.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrRateUnavailable means no exchange rate could be obtained, not even a
	// stale one.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

// IngestionService runs the full pipeline over an uploaded pair of workbooks
// and keeps the latest result available for the read endpoints.
type IngestionService interface {
	ProcessUpload(files []parsers.InputFile) (*models.Dataset, error)
	LatestDataset() (*models.Dataset, error)
	LatestKPIs() (*models.KPIResult, error)
	SuggestUnifications() ([]processors.UnificationSuggestion, error)
	ReapplyRules() (*models.Dataset, error)
	InvalidateCache()
}

// CurrencyService resolves historical exchange rates against the peso.
type CurrencyService interface {
	// GetRate returns the selling rate in force on the given date.
	GetRate(currency string, date time.Time) (decimal.Decimal, error)
	// Convert returns the peso amount and the rate used. ARS converts at
	// identity.
	Convert(amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, decimal.Decimal, error)
}
