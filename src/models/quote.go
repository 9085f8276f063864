package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resolved status values for a unified quote record.
const (
	StatusWon        = "GANADA"
	StatusLost       = "PERDIDA"
	StatusPending    = "PENDIENTE"
	StatusWonNoQuote = "GANADA (Sin Presupuesto)"
)

// RecordSource tags how a UnifiedQuoteRecord was assembled.
type RecordSource string

const (
	SourceMatch     RecordSource = "MATCH"
	SourceQuoteOnly RecordSource = "QUOTE_ONLY"
	SourceSaleOnly  RecordSource = "SALE_ONLY"
)

// NormalizedQuote is one row of the PRESUPUESTOS sheet after column mapping
// and scalar normalization. The ID is the matching key against sales rows.
type NormalizedQuote struct {
	ID           string          `json:"id"`
	Date         *time.Time      `json:"date"`
	Client       string          `json:"client"`
	Description  string          `json:"description"`
	Observations string          `json:"observations"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"` // raw sheet text, resolved later
	Equipment    string          `json:"equipment"`
	Row          int             `json:"row"`
}

// NormalizedSale is one row of a "VENTAS - CONCRETADAS <year>" sheet.
// QuoteID may be synthesized when the source row carried no number.
type NormalizedSale struct {
	QuoteID          string          `json:"quoteId"`
	SourceSheet      string          `json:"sourceSheet"`
	Year             int             `json:"year"`
	Row              int             `json:"row"`
	Client           string          `json:"client"`
	QuoteDate        *time.Time      `json:"quoteDate"`
	OCDate           *time.Time      `json:"ocDate"`
	InvoiceDate      *time.Time      `json:"invoiceDate"`
	DeliveryDate     *time.Time      `json:"deliveryDate"`
	PaymentDate      *time.Time      `json:"paymentDate"`
	ReceivableReal   decimal.Decimal `json:"receivableReal"` // "A COBRAR SIN IVA", the authoritative sale amount
	Cost             decimal.Decimal `json:"cost"`
	ProfitAmount     decimal.Decimal `json:"profitAmount"`
	ProfitPercent    decimal.Decimal `json:"profitPercent"`
	CollectionStatus string          `json:"collectionStatus"`
	OCNumber         string          `json:"ocNumber"`
	InvoiceNumber    string          `json:"invoiceNumber"`
	WorkDescription  string          `json:"workDescription"`
	Domain           string          `json:"domain"`
	Currency         string          `json:"currency"`
}

// EffectiveDate is the OC date with quote-date fallback. Sales with no
// effective date cannot be placed in a fiscal year.
func (s *NormalizedSale) EffectiveDate() *time.Time {
	if s.OCDate != nil {
		return s.OCDate
	}
	return s.QuoteDate
}

// SaleContentKey identifies the content of a sale row independently of which
// sheet it appears on. A key is claimed at most once per batch so a sale
// physically repeated across year sheets is never double counted.
type SaleContentKey struct {
	ID     string
	Client string
	Amount string
	Date   string
}

// UnifiedQuoteRecord merges a quote with at most one sale.
type UnifiedQuoteRecord struct {
	ID     string       `json:"id"`
	Source RecordSource `json:"source"`

	Date        *time.Time      `json:"date"`
	Client      string          `json:"client"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Equipment   string          `json:"equipment"`

	IsSold       bool       `json:"isSold"`
	SaleDate     *time.Time `json:"saleDate"` // invoice date of the attached sale
	OCDate       *time.Time `json:"ocDate"`
	DeliveryDate *time.Time `json:"deliveryDate"`
	PaymentDate  *time.Time `json:"paymentDate"`

	SaleAmount    decimal.Decimal `json:"saleAmount"`
	Cost          decimal.Decimal `json:"cost"`
	ProfitAmount  decimal.Decimal `json:"profitAmount"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`

	CollectionStatus string `json:"collectionStatus"`
	OCNumber         string `json:"ocNumber"`
	InvoiceNumber    string `json:"invoiceNumber"`
	WorkDescription  string `json:"workDescription"`
	SaleDomain       string `json:"saleDomain"`

	Currency         string          `json:"currency"`
	AmountARS        decimal.Decimal `json:"amountArs"`
	ExchangeRateUsed decimal.Decimal `json:"exchangeRateUsed"`
}
