package handlers

import (
	"bytes"
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
	"cryptofolio/pkg/logger"
)

func newTestRouter(t *testing.T) chi.Router {
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
	service := ledger.NewService(db.Conn(), txRepo, historyRepo, log)

	r := chi.NewRouter()
	NewHandler(service, log).RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, r chi.Router, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTransactionLifecycle(t *testing.T) {
	r := newTestRouter(t)

	// Create
	w := postJSON(t, r, "/transactions", domain.TransactionInput{
		Asset:    "BTC",
		Type:     "buy",
		Quantity: 1,
		PriceUSD: 50000,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "BTC", created.Asset)

	// List
	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var listed []domain.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	// Get
	req = httptest.NewRequest(http.MethodGet, "/transactions/"+created.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/transactions/"+created.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Gone
	req = httptest.NewRequest(http.MethodGet, "/transactions/"+created.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTransaction_BadInput(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(t, r, "/transactions", domain.TransactionInput{
		Asset: "BTC", Type: "teleport", Quantity: 1, PriceUSD: 100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader([]byte("not json")))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(t, r, "/transactions", domain.TransactionInput{
		Asset: "ETH", Type: "buy", Quantity: 2, PriceUSD: 3000,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionAdd, entries[0].Action)

	req = httptest.NewRequest(http.MethodGet, "/history/asset/eth", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	req = httptest.NewRequest(http.MethodGet, "/history/transaction/"+created.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)
}

func TestExportImport(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(t, r, "/transactions", domain.TransactionInput{
		Asset: "BTC", Type: "buy", Quantity: 1, PriceUSD: 50000,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var bundle ledger.ExportBundle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bundle))
	assert.Len(t, bundle.Transactions, 1)

	// Import into a second, fresh instance
	r2 := newTestRouter(t)
	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/import", bytes.NewReader(raw))
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/transactions", nil)
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, req)

	var listed []domain.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestEmptyListsReturnArrays(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, "[]", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/history", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, "[]", w.Body.String())
}
