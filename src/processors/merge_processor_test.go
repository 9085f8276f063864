package processors

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.Local)
	return &t
}

func TestMergeMatchesSalesToQuotes(t *testing.T) {
	ds := models.NewRawDataset()
	ds.Quotes = []models.NormalizedQuote{
		{ID: "1001", Client: "ACME SA", Amount: decimal.NewFromInt(1500000), Status: "APROBADO", Date: date(2024, 1, 10)},
		{ID: "1002", Client: "TRANSPORTES LOPEZ", Amount: decimal.NewFromInt(800000), Status: "", Date: date(2024, 1, 12)},
		{ID: "1003", Client: "METALURGICA SUR", Amount: decimal.NewFromInt(200000), Status: "RECHAZADO", Date: date(2024, 1, 15)},
	}
	ds.Sales = []models.NormalizedSale{
		{QuoteID: "1001", Client: "ACME SA", ReceivableReal: decimal.NewFromInt(1500000), OCDate: date(2024, 1, 20), InvoiceDate: date(2024, 2, 1), SourceSheet: "VENTAS - CONCRETADAS 2024", Year: 2024},
	}

	records := NewMergeProcessor().Merge(ds)
	require.Len(t, records, 3)

	matched := records[0]
	assert.Equal(t, models.SourceMatch, matched.Source)
	assert.Equal(t, models.StatusWon, matched.Status)
	assert.True(t, matched.IsSold)
	assert.True(t, matched.SaleAmount.Equal(decimal.NewFromInt(1500000)))
	require.NotNil(t, matched.SaleDate)

	assert.Equal(t, models.SourceQuoteOnly, records[1].Source)
	assert.Equal(t, models.StatusPending, records[1].Status)

	assert.Equal(t, models.StatusLost, records[2].Status)
}

func TestMergeSaleWithoutQuoteBecomesStandaloneRecord(t *testing.T) {
	ds := models.NewRawDataset()
	ds.Sales = []models.NormalizedSale{
		{QuoteID: "SIN-COT-V24-abc12", Client: "AGRO DEL ESTE", ReceivableReal: decimal.NewFromInt(250000), QuoteDate: date(2024, 2, 5), SourceSheet: "VENTAS - CONCRETADAS 2024", Year: 2024},
	}

	records := NewMergeProcessor().Merge(ds)
	require.Len(t, records, 1)
	assert.Equal(t, models.SourceSaleOnly, records[0].Source)
	assert.Equal(t, models.StatusWonNoQuote, records[0].Status)
	assert.Equal(t, "AGRO DEL ESTE", records[0].Client)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(250000)))
}

func TestMergeDropsDuplicateSalesAcrossYearSheets(t *testing.T) {
	ds := models.NewRawDataset()
	sale := models.NormalizedSale{
		QuoteID: "1001", Client: "ACME SA",
		ReceivableReal: decimal.NewFromInt(1500000),
		OCDate:         date(2024, 12, 30),
	}
	first := sale
	first.SourceSheet, first.Year = "VENTAS - CONCRETADAS 2024", 2024
	second := sale
	second.SourceSheet, second.Year = "VENTAS - CONCRETADAS 2025", 2025
	ds.Sales = []models.NormalizedSale{first, second}

	records := NewMergeProcessor().Merge(ds)
	require.Len(t, records, 1)

	dupWarnings := 0
	for _, is := range ds.Issues {
		if is.Type == models.IssueWarning && is.Sheet == "VENTAS - CONCRETADAS 2025" {
			dupWarnings++
		}
	}
	assert.Equal(t, 1, dupWarnings)
}

func TestMergeReusedQuoteIDWithDifferentContentKeptSeparate(t *testing.T) {
	ds := models.NewRawDataset()
	ds.Sales = []models.NormalizedSale{
		{QuoteID: "100", Client: "ACME SA", ReceivableReal: decimal.NewFromInt(1000), QuoteDate: date(2024, 1, 10), SourceSheet: "VENTAS - CONCRETADAS 2024", Row: 5, Year: 2024},
		{QuoteID: "100", Client: "ACME SA", ReceivableReal: decimal.NewFromInt(9999), QuoteDate: date(2024, 3, 2), SourceSheet: "VENTAS - CONCRETADAS 2024", Row: 9, Year: 2024},
	}

	records := NewMergeProcessor().Merge(ds)
	require.Len(t, records, 2)

	total := decimal.Zero
	for _, r := range records {
		assert.Equal(t, models.SourceSaleOnly, r.Source)
		total = total.Add(r.Amount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(10999)))

	warnings := 0
	for _, is := range ds.Issues {
		if is.Type == models.IssueWarning && is.Row == 9 {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestResolveStatus(t *testing.T) {
	assert.Equal(t, models.StatusWon, resolveStatus("APROBADO", false))
	assert.Equal(t, models.StatusWon, resolveStatus("vendido", false))
	assert.Equal(t, models.StatusWon, resolveStatus("ok", false))
	assert.Equal(t, models.StatusWon, resolveStatus("", true))
	assert.Equal(t, models.StatusLost, resolveStatus("NO", false))
	assert.Equal(t, models.StatusLost, resolveStatus("NO APROBADO", false))
	assert.Equal(t, models.StatusLost, resolveStatus("dado de BAJA", false))
	assert.Equal(t, models.StatusPending, resolveStatus("", false))
	assert.Equal(t, models.StatusPending, resolveStatus("en espera", false))
}
