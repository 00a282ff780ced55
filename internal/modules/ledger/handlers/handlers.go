// Package handlers provides HTTP handlers for the transaction ledger.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"cryptofolio/internal/domain"
	"cryptofolio/internal/modules/ledger"
)

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleListTransactions returns all transactions, newest first.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		h.writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// HandleGetTransaction returns one transaction by id.
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := h.service.Get(id)
	if errors.Is(err, ledger.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to get transaction")
		h.writeError(w, http.StatusInternalServerError, "Failed to get transaction")
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// HandleCreateTransaction records a new transaction, including any synthetic
// counterpart for sells and swaps.
func (h *Handler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var input domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.service.Create(input)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// HandleUpdateTransaction replaces an existing transaction's fields.
func (h *Handler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.service.Update(id, input)
	if errors.Is(err, ledger.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// HandleDeleteTransaction deletes a transaction.
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.service.Delete(id)
	if errors.Is(err, ledger.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete transaction")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleGetHistory returns the full audit trail.
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list history")
		h.writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// HandleGetHistoryByAsset returns the audit trail for one asset.
func (h *Handler) HandleGetHistoryByAsset(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")

	entries, err := h.service.HistoryByAsset(asset)
	if err != nil {
		h.log.Error().Err(err).Str("asset", asset).Msg("Failed to list history")
		h.writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// HandleGetHistoryByTransaction returns the audit trail for one transaction.
func (h *Handler) HandleGetHistoryByTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.service.HistoryByTransaction(id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to list history")
		h.writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// HandleExport streams the full ledger as a JSON bundle.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.Export()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export ledger")
		h.writeError(w, http.StatusInternalServerError, "Failed to export ledger")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="cryptofolio-export.json"`)
	h.writeJSON(w, http.StatusOK, bundle)
}

// HandleImport replaces the ledger with an uploaded JSON bundle.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var bundle ledger.ExportBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Import(bundle); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"transactions": len(bundle.Transactions),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
