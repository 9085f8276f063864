package processors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/utils"
)

const duplicateWarningCap = 20

// mergeProcessorImpl implements the MergeProcessor interface.
type mergeProcessorImpl struct{}

// NewMergeProcessor creates a new instance of MergeProcessor.
func NewMergeProcessor() MergeProcessor {
	return &mergeProcessorImpl{}
}

// Merge joins quotes and sales by quote number. Each quote yields exactly one
// record; sales that reference no known quote become standalone records with
// status "GANADA (Sin Presupuesto)".
func (p *mergeProcessorImpl) Merge(ds *models.RawDataset) []models.UnifiedQuoteRecord {
	sales := p.dedupSales(ds)

	saleByQuote := make(map[string]*models.NormalizedSale, len(sales))
	for i := range sales {
		id := strings.TrimSpace(sales[i].QuoteID)
		if _, taken := saleByQuote[id]; !taken {
			saleByQuote[id] = &sales[i]
		}
	}

	records := make([]models.UnifiedQuoteRecord, 0, len(ds.Quotes)+len(sales))
	claimed := make(map[string]bool, len(saleByQuote))

	for _, q := range ds.Quotes {
		id := strings.TrimSpace(q.ID)
		sale := saleByQuote[id]
		if sale != nil {
			claimed[id] = true
		}

		rec := models.UnifiedQuoteRecord{
			ID:          id,
			Source:      models.SourceQuoteOnly,
			Date:        q.Date,
			Client:      q.Client,
			Description: q.Description,
			Amount:      q.Amount,
			Status:      resolveStatus(q.Status, sale != nil),
			Equipment:   q.Equipment,
			Currency:    q.Currency,
		}
		if sale != nil {
			rec.Source = models.SourceMatch
			attachSale(&rec, sale)
		}
		records = append(records, rec)
	}

	for i := range sales {
		s := &sales[i]
		id := strings.TrimSpace(s.QuoteID)
		if saleByQuote[id] == s {
			if claimed[id] {
				continue
			}
		} else {
			// Same quote number, different content: the first sale keeps the
			// quote, this one enters on its own so its amount is not lost.
			ds.Issues = append(ds.Issues, models.Issue{
				Type:    models.IssueWarning,
				Sheet:   s.SourceSheet,
				Row:     s.Row,
				Message: fmt.Sprintf("El Nº %s aparece en más de una venta con datos distintos; se incorpora como venta separada.", id),
			})
		}
		rec := models.UnifiedQuoteRecord{
			ID:       id,
			Source:   models.SourceSaleOnly,
			Date:     s.EffectiveDate(),
			Client:   s.Client,
			Amount:   s.ReceivableReal,
			Status:   models.StatusWonNoQuote,
			Currency: s.Currency,
		}
		attachSale(&rec, s)
		records = append(records, rec)
	}

	logger.L.Info("Quotes and sales merged",
		"quotes", len(ds.Quotes), "sales", len(sales), "records", len(records))
	return records
}

// dedupSales drops sale rows whose content already appeared on another sheet.
// Year sheets in the source workbook overlap at the boundaries, so the same
// sale is often typed into both the closing and the opening year.
func (p *mergeProcessorImpl) dedupSales(ds *models.RawDataset) []models.NormalizedSale {
	seen := make(map[models.SaleContentKey]bool, len(ds.Sales))
	out := make([]models.NormalizedSale, 0, len(ds.Sales))
	skipped := 0
	skippedAmount := decimal.Zero

	for _, s := range ds.Sales {
		key := models.SaleContentKey{
			ID:     strings.TrimSpace(s.QuoteID),
			Client: utils.NormalizeClientName(s.Client),
			Amount: s.ReceivableReal.String(),
		}
		if d := s.EffectiveDate(); d != nil {
			key.Date = d.Format("2006-01-02")
		}

		if seen[key] {
			skipped++
			skippedAmount = skippedAmount.Add(s.ReceivableReal)
			if skipped <= duplicateWarningCap {
				ds.Issues = append(ds.Issues, models.Issue{
					Type:    models.IssueWarning,
					Sheet:   s.SourceSheet,
					Row:     s.Row,
					Message: fmt.Sprintf("Venta duplicada (Nº %s, %s); se conserva la primera aparición.", s.QuoteID, s.Client),
				})
			}
			continue
		}
		seen[key] = true
		out = append(out, s)
	}

	if skipped > 0 {
		ds.Issues = append(ds.Issues, models.Issue{
			Type:    models.IssueInfo,
			Sheet:   "GENERAL",
			Message: fmt.Sprintf("Se omitieron %d ventas duplicadas por un total de $%s.", skipped, skippedAmount.StringFixed(2)),
		})
	}
	return out
}

func attachSale(rec *models.UnifiedQuoteRecord, s *models.NormalizedSale) {
	rec.IsSold = true
	rec.SaleDate = s.InvoiceDate
	rec.OCDate = s.OCDate
	rec.DeliveryDate = s.DeliveryDate
	rec.PaymentDate = s.PaymentDate
	rec.SaleAmount = s.ReceivableReal
	rec.Cost = s.Cost
	rec.ProfitAmount = s.ProfitAmount
	rec.ProfitPercent = s.ProfitPercent
	rec.CollectionStatus = s.CollectionStatus
	rec.OCNumber = s.OCNumber
	rec.InvoiceNumber = s.InvoiceNumber
	rec.WorkDescription = s.WorkDescription
	rec.SaleDomain = s.Domain
	if rec.Client == "" {
		rec.Client = s.Client
	}
}

// resolveStatus maps the free-text ESTADO cell onto the three canonical
// outcomes. A matched sale wins over whatever the cell says.
func resolveStatus(raw string, hasSale bool) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case hasSale,
		strings.Contains(s, "APROBADO") && !strings.Contains(s, "NO APROBADO"),
		strings.Contains(s, "VENDIDO"),
		strings.Contains(s, "OK"):
		return models.StatusWon
	case strings.Contains(s, "NO"),
		strings.Contains(s, "RECHAZADO"),
		strings.Contains(s, "BAJA"):
		return models.StatusLost
	default:
		return models.StatusPending
	}
}
