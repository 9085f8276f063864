// backend/src/services/currency_service.go
package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/config"
	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/utils"
)

// ratePoint is one day of the official quote history.
type ratePoint struct {
	Date time.Time
	Sell decimal.Decimal
}

// apiQuote mirrors the argentinadatos.com response items.
type apiQuote struct {
	Compra float64 `json:"compra"`
	Venta  float64 `json:"venta"`
	Fecha  string  `json:"fecha"` // YYYY-MM-DD
}

// currencyPaths maps a currency code to its endpoint under the quotes API.
var currencyPaths = map[string]string{
	utils.CurrencyUSD: "dolares/oficial",
	utils.CurrencyEUR: "eur",
}

const staleKeySuffix = "_stale"

// currencyServiceImpl implements the CurrencyService interface. Histories are
// cached with a TTL; the last good copy is kept without expiration so an API
// outage degrades to stale rates instead of failing conversions.
type currencyServiceImpl struct {
	httpClient *http.Client
	baseURL    string
	rateCache  *cache.Cache
	ttl        time.Duration
}

// NewCurrencyService creates a new instance of the currency service.
func NewCurrencyService(rateCache *cache.Cache) CurrencyService {
	return &currencyServiceImpl{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(config.Cfg.RatesAPIURL, "/"),
		rateCache:  rateCache,
		ttl:        config.Cfg.RatesCacheTTL,
	}
}

func (s *currencyServiceImpl) GetRate(currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == utils.CurrencyARS {
		return decimal.NewFromInt(1), nil
	}

	history, err := s.history(currency)
	if err != nil {
		return decimal.Zero, err
	}

	// Latest quote at or before the date; before the history starts, the
	// oldest quote is the best available approximation.
	var best *ratePoint
	for i := range history {
		if history[i].Date.After(date) {
			break
		}
		best = &history[i]
	}
	if best == nil {
		best = &history[0]
	}
	return best.Sell, nil
}

func (s *currencyServiceImpl) Convert(amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == "" || currency == utils.CurrencyARS {
		return amount, decimal.NewFromInt(1), nil
	}
	rate, err := s.GetRate(currency, date)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return amount.Mul(rate), rate, nil
}

// history returns the sorted quote history for a currency, from cache when
// fresh, from the API otherwise, from the stale copy as a last resort.
func (s *currencyServiceImpl) history(currency string) ([]ratePoint, error) {
	path, supported := currencyPaths[currency]
	if !supported {
		return nil, fmt.Errorf("%w: moneda %s no soportada", ErrRateUnavailable, currency)
	}

	cacheKey := "rates_" + currency
	if cached, found := s.rateCache.Get(cacheKey); found {
		return cached.([]ratePoint), nil
	}

	history, err := s.fetch(path)
	if err != nil {
		logger.L.Warn("Rate fetch failed, trying stale copy", "currency", currency, "error", err)
		if stale, found := s.rateCache.Get(cacheKey + staleKeySuffix); found {
			return stale.([]ratePoint), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}

	s.rateCache.Set(cacheKey, history, s.ttl)
	s.rateCache.Set(cacheKey+staleKeySuffix, history, cache.NoExpiration)
	logger.L.Info("Rate history refreshed", "currency", currency, "points", len(history))
	return history, nil
}

func (s *currencyServiceImpl) fetch(path string) ([]ratePoint, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, path)
	resp, err := s.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to call rates API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates API returned status %d for %s", resp.StatusCode, url)
	}

	var quotes []apiQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("rates API returned an empty history for %s", url)
	}

	history := make([]ratePoint, 0, len(quotes))
	for _, q := range quotes {
		date, err := time.ParseInLocation("2006-01-02", q.Fecha, time.Local)
		if err != nil || q.Venta <= 0 {
			continue
		}
		history = append(history, ratePoint{Date: date, Sell: decimal.NewFromFloat(q.Venta)})
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("rates API returned no usable quotes for %s", url)
	}

	sort.Slice(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })
	return history, nil
}
