// backend/src/services/ingestion_service.go
package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/database"
	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/model"
	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/parsers"
	"github.com/username/cobranzas/backend/src/processors"
)

const (
	ckLatestDataset = "res_latest_dataset"
	ckLatestKPIs    = "res_latest_kpis"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// auditTolerance is the allowed gap between the hand-written TOTAL DEUDA cell
// and the reconciled open balance before a sheet is flagged.
var auditTolerance = decimal.NewFromInt(1)

type ingestionServiceImpl struct {
	parser      *parsers.WorkbookParser
	merger      processors.MergeProcessor
	reconciler  processors.ReconciliationProcessor
	kpis        processors.KPIProcessor
	unifier     processors.UnificationProcessor
	currency    CurrencyService
	reportCache *cache.Cache
}

func NewIngestionService(
	parser *parsers.WorkbookParser,
	merger processors.MergeProcessor,
	reconciler processors.ReconciliationProcessor,
	kpis processors.KPIProcessor,
	unifier processors.UnificationProcessor,
	currency CurrencyService,
	reportCache *cache.Cache,
) IngestionService {
	return &ingestionServiceImpl{
		parser:      parser,
		merger:      merger,
		reconciler:  reconciler,
		kpis:        kpis,
		unifier:     unifier,
		currency:    currency,
		reportCache: reportCache,
	}
}

func (s *ingestionServiceImpl) ProcessUpload(files []parsers.InputFile) (*models.Dataset, error) {
	start := time.Now()
	logger.L.Info("ProcessUpload START", "files", len(files))

	raw := s.parser.Parse(files)
	if len(raw.Quotes) == 0 && len(raw.Sales) == 0 && len(raw.LedgerRows) == 0 {
		if models.HasBlocking(raw.Issues) {
			return nil, fmt.Errorf("%w: ningún archivo pudo leerse", ErrParsingFailed)
		}
		return nil, fmt.Errorf("%w: los archivos no contienen hojas reconocibles", ErrParsingFailed)
	}

	quotes := s.merger.Merge(raw)
	ledger := s.reconciler.Reconcile(raw)

	rules, err := model.GetAllRules(database.DB)
	if err != nil {
		logger.L.Error("Could not load unification rules, continuing without them", "error", err)
	} else {
		quotes, ledger = s.unifier.Apply(rules, quotes, ledger)
	}

	s.convertAmounts(quotes, raw)
	s.auditBalances(ledger, raw)

	kpiResult := s.kpis.Calculate(quotes, ledger, raw.Audit)

	ds := &models.Dataset{
		Quotes:  quotes,
		Clients: ledger,
		KPI: models.KPISummary{
			TotalPotencial: kpiResult.Quotes.ActivePipeline,
			TotalVendido:   kpiResult.Sales.TotalSales,
			TotalDeuda:     kpiResult.Debt.TotalDebt,
		},
		Audit:  raw.Audit,
		Issues: raw.Issues,
	}

	s.reportCache.Set(ckLatestDataset, ds, cache.NoExpiration)
	s.reportCache.Set(ckLatestKPIs, &kpiResult, cache.NoExpiration)

	logger.L.Info("ProcessUpload END",
		"quotes", len(quotes), "ledgerEntries", len(ledger),
		"issues", len(raw.Issues), "duration", time.Since(start))
	return ds, nil
}

// convertAmounts fills the peso view of foreign-currency records. Won deals
// convert at their invoice date (quote date as fallback) so closed revenue is
// historically fixed; open pipeline converts at today's rate. A failed
// conversion leaves the original amount and raises a warning instead of
// dropping the record.
func (s *ingestionServiceImpl) convertAmounts(quotes []models.UnifiedQuoteRecord, raw *models.RawDataset) {
	for i := range quotes {
		q := &quotes[i]
		date := time.Now()
		if q.Status == models.StatusWon || q.Status == models.StatusWonNoQuote {
			if q.SaleDate != nil {
				date = *q.SaleDate
			} else if q.Date != nil {
				date = *q.Date
			}
		}

		ars, rate, err := s.currency.Convert(q.Amount, q.Currency, date)
		if err != nil {
			raw.Issues = append(raw.Issues, models.Issue{
				Type:    models.IssueWarning,
				Sheet:   "GENERAL",
				Message: fmt.Sprintf("Sin cotización %s para el registro %s; se muestra el monto original.", q.Currency, q.ID),
			})
			q.AmountARS = q.Amount
			q.ExchangeRateUsed = decimal.NewFromInt(1)
			continue
		}
		q.AmountARS = ars
		q.ExchangeRateUsed = rate
	}
}

// auditBalances compares each sheet's hand-written TOTAL DEUDA against the
// reconciled open balance.
func (s *ingestionServiceImpl) auditBalances(ledger []models.LedgerEntry, raw *models.RawDataset) {
	open := make(map[string]decimal.Decimal)
	for _, e := range ledger {
		if e.Amount.Sign() > 0 {
			open[e.Client] = open[e.Client].Add(e.Amount)
		}
	}

	for sheet, expected := range raw.Audit {
		got := open[sheet]
		diff := got.Sub(expected).Abs()
		if diff.LessThanOrEqual(auditTolerance) {
			continue
		}
		raw.Issues = append(raw.Issues, models.Issue{
			Type:  models.IssueWarning,
			Sheet: sheet,
			Message: fmt.Sprintf("La deuda conciliada ($%s) no coincide con el TOTAL DEUDA anotado ($%s).",
				got.StringFixed(2), expected.StringFixed(2)),
		})
	}
}

func (s *ingestionServiceImpl) LatestDataset() (*models.Dataset, error) {
	if cached, found := s.reportCache.Get(ckLatestDataset); found {
		return cached.(*models.Dataset), nil
	}
	return nil, ErrNoDataset
}

func (s *ingestionServiceImpl) LatestKPIs() (*models.KPIResult, error) {
	if cached, found := s.reportCache.Get(ckLatestKPIs); found {
		return cached.(*models.KPIResult), nil
	}
	return nil, ErrNoDataset
}

// SuggestUnifications clusters the client names of the latest dataset. Names
// already covered by a saved rule are folded before clustering, so accepted
// suggestions do not resurface.
func (s *ingestionServiceImpl) SuggestUnifications() ([]processors.UnificationSuggestion, error) {
	ds, err := s.LatestDataset()
	if err != nil {
		return nil, err
	}

	rules, err := model.GetAllRules(database.DB)
	if err != nil {
		logger.L.Error("Could not load unification rules for suggestions", "error", err)
		rules = nil
	}
	fold := func(name string) string {
		if canonical, ok := rules[name]; ok && canonical != "" {
			return canonical
		}
		return name
	}

	var names []string
	for i := range ds.Quotes {
		names = append(names, fold(ds.Quotes[i].Client))
	}
	for i := range ds.Clients {
		names = append(names, fold(ds.Clients[i].Client))
	}
	return s.unifier.Suggest(names), nil
}

// ReapplyRules re-runs unification and the aggregates over the cached dataset
// after the rules change, without needing the workbooks again.
func (s *ingestionServiceImpl) ReapplyRules() (*models.Dataset, error) {
	ds, err := s.LatestDataset()
	if err != nil {
		return nil, err
	}

	rules, err := model.GetAllRules(database.DB)
	if err != nil {
		return nil, fmt.Errorf("error loading unification rules: %w", err)
	}
	ds.Quotes, ds.Clients = s.unifier.Apply(rules, ds.Quotes, ds.Clients)

	kpiResult := s.kpis.Calculate(ds.Quotes, ds.Clients, ds.Audit)
	ds.KPI = models.KPISummary{
		TotalPotencial: kpiResult.Quotes.ActivePipeline,
		TotalVendido:   kpiResult.Sales.TotalSales,
		TotalDeuda:     kpiResult.Debt.TotalDebt,
	}

	s.reportCache.Set(ckLatestDataset, ds, cache.NoExpiration)
	s.reportCache.Set(ckLatestKPIs, &kpiResult, cache.NoExpiration)
	logger.L.Info("Unification rules reapplied", "rules", len(rules))
	return ds, nil
}

func (s *ingestionServiceImpl) InvalidateCache() {
	s.reportCache.Delete(ckLatestDataset)
	s.reportCache.Delete(ckLatestKPIs)
	logger.L.Info("Invalidated dataset caches")
}
