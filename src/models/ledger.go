package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aging buckets for overdue receivables.
const (
	AgingCurrent = "Corriente"
	Aging30      = "1-30 días"
	Aging60      = "31-60 días"
	Aging90      = "61-90 días"
	AgingPlus90  = "+90 días"
)

// Reconciliation outcome markers.
const (
	LedgerPaidByCredit   = "PAID_BY_NC"
	LedgerOffsetByCredit = "OFFSET_BY_NC"
)

// LedgerRow is the parser's semi-typed view of one client-sheet row, before
// sign normalization and reconciliation. Amount carries the sign exactly as it
// appeared in the sheet.
type LedgerRow struct {
	ClientSheet string
	Row         int
	Date        *time.Time
	DueDate     *time.Time
	PaymentDate *time.Time
	PaymentText string // raw "FECHA COBRO" cell, may hold keywords like SALDADA
	Type        string
	Number      string
	ManualRef   bool // Number is a synthesized placeholder, not a sheet value
	Amount      decimal.Decimal
	Obs         string
}

// LedgerEntry is one invoice, credit note or payment of a client account
// after modeling and reconciliation. Amount is the reconciled open balance
// (zero for settled/offset entries); OriginalAmount never changes.
type LedgerEntry struct {
	ID     string `json:"id"`
	Client string `json:"client"`

	Date        *time.Time `json:"date"`
	DueDate     *time.Time `json:"dueDate"`
	PaymentDate *time.Time `json:"paymentDate"`

	Type   string `json:"type"`
	Number string `json:"number"`

	Amount         decimal.Decimal `json:"amount"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	AppliedCredit  decimal.Decimal `json:"appliedNC"`

	Obs string `json:"obs"`

	DaysOverdue      int    `json:"daysOverdue"`
	AgingBucket      string `json:"agingBucket"`
	PaymentDelayDays *int   `json:"paymentDelayDays"` // nil when the delay is unknowable
	AvgPaymentDelay  int    `json:"avgPaymentDelay"`  // per-client mean, repeated on every entry

	IsSettled       bool   `json:"isSettled"`
	IsOffset        bool   `json:"isOffset"`
	IsManualPayment bool   `json:"isManualPayment"`
	Status          string `json:"status,omitempty"`
}

// RawDataset is what the workbook parser hands to the processors: the three
// record streams plus the per-sheet audit expectations and the diagnostics
// accumulated so far.
type RawDataset struct {
	Quotes     []NormalizedQuote
	Sales      []NormalizedSale
	LedgerRows []LedgerRow
	Audit      map[string]decimal.Decimal // sheet name -> "TOTAL DEUDA" cell
	Issues     []Issue
}

// NewRawDataset returns an empty dataset with the audit map initialized.
func NewRawDataset() *RawDataset {
	return &RawDataset{Audit: make(map[string]decimal.Decimal)}
}

// Dataset is the reconciled output model consumed by presentation layers.
type Dataset struct {
	Quotes  []UnifiedQuoteRecord       `json:"quotes"`
	Clients []LedgerEntry              `json:"clients"`
	KPI     KPISummary                 `json:"kpi"`
	Audit   map[string]decimal.Decimal `json:"audit"`
	Issues  []Issue                    `json:"issues"`
}

// KPISummary carries the headline totals computed during processing. The full
// KPI breakdown (aging, trends, top debtors) lives in KPIResult.
type KPISummary struct {
	TotalPotencial decimal.Decimal `json:"totalPotencial"`
	TotalVendido   decimal.Decimal `json:"totalVendido"`
	TotalDeuda     decimal.Decimal `json:"totalDeuda"`
}
