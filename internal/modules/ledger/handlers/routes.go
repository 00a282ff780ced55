package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.HandleListTransactions)
		r.Post("/", h.HandleCreateTransaction)
		r.Get("/{id}", h.HandleGetTransaction)
		r.Put("/{id}", h.HandleUpdateTransaction)
		r.Delete("/{id}", h.HandleDeleteTransaction)
	})

	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.HandleGetHistory)
		r.Get("/asset/{asset}", h.HandleGetHistoryByAsset)
		r.Get("/transaction/{id}", h.HandleGetHistoryByTransaction)
	})

	r.Get("/export", h.HandleExport)
	r.Post("/import", h.HandleImport)
}
