package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all import/export routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/import-export", func(r chi.Router) {
		r.Route("/import", func(r chi.Router) {
			r.Post("/investors", h.HandleImportInvestors)
			r.Post("/companies", h.HandleImportCompanies)
			r.Post("/investments", h.HandleImportInvestments)
		})
		r.Route("/export", func(r chi.Router) {
			r.Get("/all", h.HandleExportAll)
			r.Get("/investors", h.HandleExportInvestors)
			r.Get("/companies", h.HandleExportCompanies)
			r.Get("/investments", h.HandleExportInvestments)
		})
	})
}
