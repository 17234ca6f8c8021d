package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all investor routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/investors", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetBySlug(w, r, chi.URLParam(r, "slug"))
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
		r.Get("/{id}/portfolio", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetPortfolio(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/enrich", func(w http.ResponseWriter, r *http.Request) {
			h.HandleEnrich(w, r, chi.URLParam(r, "id"))
		})
	})
}
