package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all company routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetBySlug(w, r, chi.URLParam(r, "slug"))
		})
		r.Get("/ticker/{ticker}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetByTicker(w, r, chi.URLParam(r, "ticker"))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGet(w, r, chi.URLParam(r, "id"))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdate(w, r, chi.URLParam(r, "id"))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDelete(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/{id}/funding", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetFundingHistory(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/{id}/investors", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetInvestors(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/{id}/stale", func(w http.ResponseWriter, r *http.Request) {
			h.HandleCheckStale(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/enrich", func(w http.ResponseWriter, r *http.Request) {
			h.HandleEnrich(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/fetch", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRequestFetch(w, r, chi.URLParam(r, "id"))
		})
	})
}
