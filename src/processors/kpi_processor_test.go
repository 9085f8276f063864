package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cobranzas/backend/src/models"
)

func newTestKPI() *kpiProcessorImpl {
	return &kpiProcessorImpl{now: fixedNow}
}

func TestSalesKPITotalsAndTrend(t *testing.T) {
	quotes := []models.UnifiedQuoteRecord{
		{Status: models.StatusWon, SaleAmount: decimal.NewFromInt(100), SaleDate: date(2024, 1, 10)},
		{Status: models.StatusWon, Amount: decimal.NewFromInt(200), SaleDate: date(2024, 1, 20)},
		{Status: models.StatusWonNoQuote, SaleAmount: decimal.NewFromInt(300), SaleDate: date(2024, 2, 5)},
		{Status: models.StatusPending, Amount: decimal.NewFromInt(50)},
	}

	kpi := newTestKPI().salesKPI(quotes)
	assert.True(t, kpi.TotalSales.Equal(decimal.NewFromInt(600)))

	require.Len(t, kpi.RevenueTrend, 3)
	jan := kpi.RevenueTrend[0]
	assert.Equal(t, "2024-01", jan.Month)
	assert.True(t, jan.Revenue.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 2, jan.WonCount)

	feb := kpi.RevenueTrend[1]
	assert.Equal(t, "2024-02", feb.Month)
	assert.True(t, feb.Revenue.Equal(decimal.NewFromInt(300)))

	// The pending quote sits on today's month with no revenue.
	pending := kpi.RevenueTrend[2]
	assert.Equal(t, "2024-06", pending.Month)
	assert.True(t, pending.Revenue.IsZero())
	assert.Equal(t, 1, pending.TotalCount)
}

func TestQuotesKPIConversionRate(t *testing.T) {
	quotes := []models.UnifiedQuoteRecord{
		{Status: models.StatusWon, Amount: decimal.NewFromInt(100)},
		{Status: models.StatusWonNoQuote, Amount: decimal.NewFromInt(400)},
		{Status: models.StatusLost, Amount: decimal.NewFromInt(200)},
		{Status: models.StatusPending, Amount: decimal.NewFromInt(300)},
	}

	kpi := newTestKPI().quotesKPI(quotes)
	assert.True(t, kpi.PipelineValue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, kpi.ActivePipeline.Equal(decimal.NewFromInt(300)))
	assert.InDelta(t, 66.67, kpi.ConversionRate, 0.001)
	assert.Equal(t, 4, kpi.Count)
}

func TestQuotesKPIWithoutClosedQuotes(t *testing.T) {
	kpi := newTestKPI().quotesKPI([]models.UnifiedQuoteRecord{
		{Status: models.StatusPending, Amount: decimal.NewFromInt(100)},
	})
	assert.Zero(t, kpi.ConversionRate)
}

func TestDebtKPIAggregatesByClient(t *testing.T) {
	ledger := []models.LedgerEntry{
		{Client: "ACME SA", Amount: decimal.NewFromInt(1000), AgingBucket: models.Aging30, DaysOverdue: 10, AvgPaymentDelay: 12},
		{Client: "ACME SA", Amount: decimal.Zero, IsSettled: true, AgingBucket: models.AgingCurrent, AvgPaymentDelay: 12},
		{Client: "TRANSPORTES LOPEZ", Amount: decimal.NewFromInt(3000), AgingBucket: models.AgingPlus90, DaysOverdue: 100},
		{Client: "METALURGICA SUR", Amount: decimal.NewFromInt(500), AgingBucket: models.AgingCurrent},
	}

	kpi := newTestKPI().debtKPI(ledger)
	assert.True(t, kpi.TotalDebt.Equal(decimal.NewFromInt(4500)))
	assert.True(t, kpi.Aging.Days30.Equal(decimal.NewFromInt(1000)))
	assert.True(t, kpi.Aging.Plus90.Equal(decimal.NewFromInt(3000)))
	assert.True(t, kpi.Aging.Current.Equal(decimal.NewFromInt(500)))
	// (1000*10 + 3000*100) / 4500, rounded.
	assert.Equal(t, 69, kpi.AverageDaysDelinquent)

	require.Len(t, kpi.Clients, 3)
	assert.Equal(t, "TRANSPORTES LOPEZ", kpi.Clients[0].Client)
	assert.Equal(t, "ACME SA", kpi.Clients[1].Client)
	assert.Equal(t, "METALURGICA SUR", kpi.Clients[2].Client)

	acme := kpi.Clients[1]
	assert.True(t, acme.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, models.Aging30, acme.AgingBucket)
	assert.Equal(t, 12, acme.PaymentDelayDays)
	assert.Len(t, acme.Invoices, 2)

	assert.Len(t, kpi.TopDebtors, 3)
	assert.Equal(t, "TRANSPORTES LOPEZ", kpi.TopDebtors[0].Client)
}

func TestDebtKPITopDebtorsCapped(t *testing.T) {
	var ledger []models.LedgerEntry
	for i := 0; i < 8; i++ {
		ledger = append(ledger, models.LedgerEntry{
			Client:      string(rune('A' + i)),
			Amount:      decimal.NewFromInt(int64(100 * (i + 1))),
			AgingBucket: models.AgingCurrent,
		})
	}

	kpi := newTestKPI().debtKPI(ledger)
	assert.Len(t, kpi.Clients, 8)
	require.Len(t, kpi.TopDebtors, topDebtorCount)
	assert.Equal(t, "H", kpi.TopDebtors[0].Client)
}
