package processors

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/utils"
)

const topDebtorCount = 5

// kpiProcessorImpl implements the KPIProcessor interface.
type kpiProcessorImpl struct {
	now func() time.Time
}

// NewKPIProcessor creates a new instance of KPIProcessor.
func NewKPIProcessor() KPIProcessor {
	return &kpiProcessorImpl{now: time.Now}
}

// Calculate rolls the unified records and reconciled ledger up into the
// dashboard aggregates.
func (p *kpiProcessorImpl) Calculate(quotes []models.UnifiedQuoteRecord, ledger []models.LedgerEntry, audit map[string]decimal.Decimal) models.KPIResult {
	return models.KPIResult{
		Sales:  p.salesKPI(quotes),
		Quotes: p.quotesKPI(quotes),
		Debt:   p.debtKPI(ledger),
		Audit:  audit,
	}
}

func (p *kpiProcessorImpl) salesKPI(quotes []models.UnifiedQuoteRecord) models.SalesKPI {
	total := decimal.Zero
	byMonth := make(map[string]*models.MonthlyRevenue)

	for i := range quotes {
		q := &quotes[i]
		month := p.conversionDate(q).Format("2006-01")
		mr := byMonth[month]
		if mr == nil {
			mr = &models.MonthlyRevenue{Month: month}
			byMonth[month] = mr
		}
		mr.TotalCount++

		if !isWon(q.Status) {
			continue
		}
		amount := q.SaleAmount
		if amount.IsZero() {
			amount = q.Amount
		}
		total = total.Add(amount)
		mr.Revenue = mr.Revenue.Add(amount)
		mr.WonCount++
	}

	trend := make([]models.MonthlyRevenue, 0, len(byMonth))
	for _, mr := range byMonth {
		trend = append(trend, *mr)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })

	return models.SalesKPI{TotalSales: total, RevenueTrend: trend}
}

// conversionDate places a record on the trend timeline. Won deals sit on
// their invoice date, falling back to the quote date; everything still in
// flight counts as today.
func (p *kpiProcessorImpl) conversionDate(q *models.UnifiedQuoteRecord) time.Time {
	if isWon(q.Status) {
		if q.SaleDate != nil {
			return *q.SaleDate
		}
		if q.Date != nil {
			return *q.Date
		}
	}
	return p.now()
}

func isWon(status string) bool {
	return status == models.StatusWon || status == models.StatusWonNoQuote
}

func (p *kpiProcessorImpl) quotesKPI(quotes []models.UnifiedQuoteRecord) models.QuotesKPI {
	pipeline := decimal.Zero
	active := decimal.Zero
	won, closed := 0, 0

	for i := range quotes {
		q := &quotes[i]
		pipeline = pipeline.Add(q.Amount)
		switch {
		case isWon(q.Status):
			won++
			closed++
		case q.Status == models.StatusLost:
			closed++
		default:
			active = active.Add(q.Amount)
		}
	}

	rate := 0.0
	if closed > 0 {
		rate = utils.RoundFloat(float64(won)/float64(closed)*100, 2)
	}

	return models.QuotesKPI{
		PipelineValue:  pipeline,
		ActivePipeline: active,
		ConversionRate: rate,
		Count:          len(quotes),
	}
}

func (p *kpiProcessorImpl) debtKPI(ledger []models.LedgerEntry) models.DebtKPI {
	total := decimal.Zero
	var aging models.AgingSummary
	weightedDays := decimal.Zero

	byClient := make(map[string]*models.ClientDebtSummary)
	order := make([]string, 0)

	for i := range ledger {
		e := ledger[i]
		cs := byClient[e.Client]
		if cs == nil {
			cs = &models.ClientDebtSummary{Client: e.Client, AgingBucket: models.AgingCurrent}
			byClient[e.Client] = cs
			order = append(order, e.Client)
		}
		cs.PaymentDelayDays = e.AvgPaymentDelay
		cs.Invoices = append(cs.Invoices, e)

		if e.Amount.Sign() <= 0 {
			continue
		}
		total = total.Add(e.Amount)
		cs.Amount = cs.Amount.Add(e.Amount)
		if bucketRank(e.AgingBucket) > bucketRank(cs.AgingBucket) {
			cs.AgingBucket = e.AgingBucket
		}
		weightedDays = weightedDays.Add(e.Amount.Mul(decimal.NewFromInt(int64(e.DaysOverdue))))

		switch e.AgingBucket {
		case models.Aging30:
			aging.Days30 = aging.Days30.Add(e.Amount)
		case models.Aging60:
			aging.Days60 = aging.Days60.Add(e.Amount)
		case models.Aging90:
			aging.Days90 = aging.Days90.Add(e.Amount)
		case models.AgingPlus90:
			aging.Plus90 = aging.Plus90.Add(e.Amount)
		default:
			aging.Current = aging.Current.Add(e.Amount)
		}
	}

	avgDays := 0
	if total.Sign() > 0 {
		avgDays = int(weightedDays.Div(total).Round(0).IntPart())
	}

	clients := make([]models.ClientDebtSummary, 0, len(order))
	for _, name := range order {
		clients = append(clients, *byClient[name])
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].Amount.GreaterThan(clients[j].Amount)
	})

	top := clients
	if len(top) > topDebtorCount {
		top = top[:topDebtorCount]
	}
	topDebtors := make([]models.ClientDebtSummary, len(top))
	copy(topDebtors, top)

	return models.DebtKPI{
		TotalDebt:             total,
		AverageDaysDelinquent: avgDays,
		Aging:                 aging,
		TopDebtors:            topDebtors,
		Clients:               clients,
	}
}

func bucketRank(bucket string) int {
	switch bucket {
	case models.Aging30:
		return 1
	case models.Aging60:
		return 2
	case models.Aging90:
		return 3
	case models.AgingPlus90:
		return 4
	default:
		return 0
	}
}
