// Package handlers provides HTTP handlers for search operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/modules/search"
)

// Handler handles search HTTP requests
type Handler struct {
	service *search.Service
	log     zerolog.Logger
}

// NewHandler creates a new search handler
func NewHandler(service *search.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "search").Logger(),
	}
}

// RegisterRoutes registers all search routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/search", func(r chi.Router) {
		r.Get("/", h.HandleSearch)
		r.Get("/investors", h.HandleSearchInvestors)
		r.Get("/companies", h.HandleSearchCompanies)
	})
}

// HandleSearch handles GET /api/search?q=...
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query, limit := params(r)
	results, err := h.service.Search(query, limit)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Search failed")
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	h.writeData(w, results)
}

// HandleSearchInvestors handles GET /api/search/investors?q=...
func (h *Handler) HandleSearchInvestors(w http.ResponseWriter, r *http.Request) {
	query, limit := params(r)
	results, err := h.service.SearchInvestors(query, limit)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Investor search failed")
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	h.writeData(w, results)
}

// HandleSearchCompanies handles GET /api/search/companies?q=...
func (h *Handler) HandleSearchCompanies(w http.ResponseWriter, r *http.Request) {
	query, limit := params(r)
	results, err := h.service.SearchCompanies(query, limit)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Company search failed")
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	h.writeData(w, results)
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func params(r *http.Request) (string, int) {
	query := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	return query, limit
}
