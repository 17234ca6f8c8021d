package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all connection graph routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/connections", func(r chi.Router) {
		r.Post("/discover", h.HandleDiscover)
		r.Get("/statistics", h.HandleStats)
		r.Get("/investors/{id}/network", func(w http.ResponseWriter, r *http.Request) {
			h.HandleInvestorNetwork(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/companies/{id}/network", func(w http.ResponseWriter, r *http.Request) {
			h.HandleCompanyNetwork(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/companies/{id}/potential-investors", func(w http.ResponseWriter, r *http.Request) {
			h.HandlePotentialCoInvestors(w, r, chi.URLParam(r, "id"))
		})
	})
}
