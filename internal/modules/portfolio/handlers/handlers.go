// Package handlers provides HTTP handlers for portfolio views.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"cryptofolio/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns all valued positions plus portfolio totals,
// sorted by market value descending.
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio overview")
		h.writeError(w, http.StatusInternalServerError, "Failed to build portfolio overview")
		return
	}
	h.writeJSON(w, http.StatusOK, overview)
}

// HandleGetSummary returns portfolio-level totals only.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio summary")
		h.writeError(w, http.StatusInternalServerError, "Failed to build portfolio summary")
		return
	}
	h.writeJSON(w, http.StatusOK, overview.Metrics)
}

// HandleGetAllocation returns each asset's share of total value.
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.GetAllocation(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build allocation")
		h.writeError(w, http.StatusInternalServerError, "Failed to build allocation")
		return
	}
	h.writeJSON(w, http.StatusOK, slices)
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
