package services

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cobranzas/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const usdHistory = `[
	{"compra": 950, "venta": 1000, "fecha": "2024-01-10"},
	{"compra": 1000, "venta": 1050, "fecha": "2024-02-10"},
	{"compra": 1050, "venta": 1100, "fecha": "2024-03-10"}
]`

func newTestCurrencyService(t *testing.T, failing *atomic.Bool) (*currencyServiceImpl, *cache.Cache) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing != nil && failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		switch r.URL.Path {
		case "/dolares/oficial":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(usdHistory))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	c := cache.New(time.Hour, time.Hour)
	svc := &currencyServiceImpl{
		httpClient: server.Client(),
		baseURL:    server.URL,
		rateCache:  c,
		ttl:        time.Hour,
	}
	return svc, c
}

func TestGetRateARSIsIdentity(t *testing.T) {
	svc, _ := newTestCurrencyService(t, nil)
	rate, err := svc.GetRate("ARS", time.Now())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestGetRatePicksLatestQuoteAtOrBeforeDate(t *testing.T) {
	svc, _ := newTestCurrencyService(t, nil)

	rate, err := svc.GetRate("USD", time.Date(2024, 2, 20, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1050)))

	rate, err = svc.GetRate("USD", time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1100)))
}

func TestGetRateBeforeHistoryUsesOldestQuote(t *testing.T) {
	svc, _ := newTestCurrencyService(t, nil)
	rate, err := svc.GetRate("USD", time.Date(2023, 6, 1, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1000)))
}

func TestGetRateUnsupportedCurrency(t *testing.T) {
	svc, _ := newTestCurrencyService(t, nil)
	_, err := svc.GetRate("BRL", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestGetRateFallsBackToStaleCopy(t *testing.T) {
	var failing atomic.Bool
	svc, c := newTestCurrencyService(t, &failing)

	_, err := svc.GetRate("USD", time.Date(2024, 2, 20, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)

	// Expire the fresh copy and break the API; the stale copy must answer.
	c.Delete("rates_USD")
	failing.Store(true)

	rate, err := svc.GetRate("USD", time.Date(2024, 2, 20, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1050)))
}

func TestGetRateFailsWithoutAnyCopy(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	svc, _ := newTestCurrencyService(t, &failing)

	_, err := svc.GetRate("USD", time.Now())
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConvert(t *testing.T) {
	svc, _ := newTestCurrencyService(t, nil)

	ars, rate, err := svc.Convert(decimal.NewFromInt(10), "USD", time.Date(2024, 1, 15, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1000)))
	assert.True(t, ars.Equal(decimal.NewFromInt(10000)))

	ars, rate, err = svc.Convert(decimal.NewFromInt(10), "", time.Now())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	assert.True(t, ars.Equal(decimal.NewFromInt(10)))
}
