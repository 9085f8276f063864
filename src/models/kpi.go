package models

import "github.com/shopspring/decimal"

// MonthlyRevenue is one point of the revenue trend (YYYY-MM granularity).
type MonthlyRevenue struct {
	Month      string          `json:"month"`
	Revenue    decimal.Decimal `json:"revenue"`
	WonCount   int             `json:"wonCount"`
	TotalCount int             `json:"totalCount"`
}

// SalesKPI summarizes closed-won value.
type SalesKPI struct {
	TotalSales   decimal.Decimal  `json:"totalSales"`
	RevenueTrend []MonthlyRevenue `json:"revenueTrend"`
}

// QuotesKPI summarizes the quote pipeline.
type QuotesKPI struct {
	PipelineValue  decimal.Decimal `json:"pipelineValue"`
	ActivePipeline decimal.Decimal `json:"activePipeline"`
	ConversionRate float64         `json:"conversionRate"`
	Count          int             `json:"count"`
}

// AgingSummary is the open debt bucketed by days overdue.
type AgingSummary struct {
	Current decimal.Decimal `json:"current"`
	Days30  decimal.Decimal `json:"days30"`
	Days60  decimal.Decimal `json:"days60"`
	Days90  decimal.Decimal `json:"days90"`
	Plus90  decimal.Decimal `json:"plus90"`
}

// ClientDebtSummary aggregates a client's reconciled ledger for display.
type ClientDebtSummary struct {
	Client           string          `json:"client"`
	Amount           decimal.Decimal `json:"amount"`
	Invoices         []LedgerEntry   `json:"invoices"`
	PaymentDelayDays int             `json:"paymentDelayDays"`
	AgingBucket      string          `json:"agingBucket"`
}

// DebtKPI summarizes receivables.
type DebtKPI struct {
	TotalDebt             decimal.Decimal     `json:"totalDebt"`
	AverageDaysDelinquent int                 `json:"averageDaysDelinquent"`
	Aging                 AgingSummary        `json:"aging"`
	TopDebtors            []ClientDebtSummary `json:"topDebtors"`
	Clients               []ClientDebtSummary `json:"clients"`
}

// KPIResult is the full roll-up handed to dashboards.
type KPIResult struct {
	Sales  SalesKPI                   `json:"sales"`
	Quotes QuotesKPI                  `json:"quotes"`
	Debt   DebtKPI                    `json:"debt"`
	Audit  map[string]decimal.Decimal `json:"audit"`
}
