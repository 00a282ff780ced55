package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptofolio/internal/database"
	"cryptofolio/internal/domain"
	"cryptofolio/internal/modules/ledger"
	"cryptofolio/internal/modules/portfolio"
	"cryptofolio/pkg/logger"
)

type staticPrices map[string]domain.AssetPrice

func (s staticPrices) GetPrices(ctx context.Context, symbols []string) map[string]domain.AssetPrice {
	result := make(map[string]domain.AssetPrice)
	for _, sym := range symbols {
		if price, ok := s[sym]; ok {
			result[sym] = price
		}
	}
	return result
}

func newTestRouter(t *testing.T, prices staticPrices) (chi.Router, *ledger.Service) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    t.TempDir() + "/ledger.db",
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error", Pretty: false})
	txRepo := ledger.NewTransactionRepository(db.Conn(), log)
	historyRepo := ledger.NewHistoryRepository(db.Conn(), log)
	ledgerService := ledger.NewService(db.Conn(), txRepo, historyRepo, log)
	service := portfolio.NewService(txRepo, prices, log)

	r := chi.NewRouter()
	NewHandler(service, log).RegisterRoutes(r)
	return r, ledgerService
}

func TestGetPortfolio(t *testing.T) {
	prices := staticPrices{
		"BTC": {Symbol: "BTC", CurrentPrice: 70000},
		"ETH": {Symbol: "ETH", CurrentPrice: 3000},
	}
	r, ledgerService := newTestRouter(t, prices)

	_, err := ledgerService.Create(domain.TransactionInput{Asset: "ETH", Type: "buy", Quantity: 10, PriceUSD: 2500})
	require.NoError(t, err)
	_, err = ledgerService.Create(domain.TransactionInput{Asset: "BTC", Type: "buy", Quantity: 1, PriceUSD: 50000})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var overview portfolio.Overview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))

	require.Len(t, overview.Positions, 2)
	// Sorted by value descending: BTC 70000 > ETH 30000
	assert.Equal(t, "BTC", overview.Positions[0].Asset)
	assert.Equal(t, "ETH", overview.Positions[1].Asset)
	assert.InDelta(t, 100000, overview.Metrics.TotalValue, 1e-6)
	assert.InDelta(t, 75000, overview.Metrics.TotalCost, 1e-6)
}

func TestGetSummary(t *testing.T) {
	prices := staticPrices{"BTC": {Symbol: "BTC", CurrentPrice: 60000}}
	r, ledgerService := newTestRouter(t, prices)

	_, err := ledgerService.Create(domain.TransactionInput{Asset: "BTC", Type: "buy", Quantity: 1, PriceUSD: 50000})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/portfolio/summary", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var metrics domain.PortfolioMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.InDelta(t, 60000, metrics.TotalValue, 1e-6)
	assert.InDelta(t, 10000, metrics.TotalPnL, 1e-6)
	assert.InDelta(t, 20, metrics.TotalPnLPercentage, 1e-6)
}

func TestGetAllocation(t *testing.T) {
	prices := staticPrices{
		"BTC": {Symbol: "BTC", CurrentPrice: 75000},
		"ETH": {Symbol: "ETH", CurrentPrice: 2500},
	}
	r, ledgerService := newTestRouter(t, prices)

	_, err := ledgerService.Create(domain.TransactionInput{Asset: "BTC", Type: "buy", Quantity: 1, PriceUSD: 50000})
	require.NoError(t, err)
	_, err = ledgerService.Create(domain.TransactionInput{Asset: "ETH", Type: "buy", Quantity: 10, PriceUSD: 2000})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/portfolio/allocation", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var slices []portfolio.AllocationSlice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slices))
	require.Len(t, slices, 2)

	// BTC 75000 of 100000 total
	assert.Equal(t, "BTC", slices[0].Asset)
	assert.InDelta(t, 75, slices[0].Percentage, 1e-6)
	assert.InDelta(t, 25, slices[1].Percentage, 1e-6)
}

func TestGetPortfolio_MissingPricesDegrade(t *testing.T) {
	r, ledgerService := newTestRouter(t, staticPrices{})

	_, err := ledgerService.Create(domain.TransactionInput{Asset: "BTC", Type: "buy", Quantity: 1, PriceUSD: 50000})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var overview portfolio.Overview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	require.Len(t, overview.Positions, 1)
	assert.Zero(t, overview.Positions[0].Value)
	assert.InDelta(t, -50000, overview.Metrics.TotalPnL, 1e-6)
}
