package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all job queue routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/stats", h.HandleStats)
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleJobStatus(w, r, chi.URLParam(r, "id"))
		})
	})
	r.Route("/scrape", func(r chi.Router) {
		r.Post("/", h.HandleScrape)
		r.Get("/history/{investorId}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleScrapeHistory(w, r, chi.URLParam(r, "investorId"))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleScrapeRecord(w, r, chi.URLParam(r, "id"))
		})
	})
}
