// Package handlers provides HTTP handlers for investor operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/investors"
)

// Handler handles investor HTTP requests
type Handler struct {
	service *investors.Service
	log     zerolog.Logger
}

// NewHandler creates a new investor handler
func NewHandler(service *investors.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "investors").Logger(),
	}
}

// HandleList handles GET /api/investors
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := investors.ListFilter{
		Type:    domain.InvestorType(r.URL.Query().Get("type")),
		Country: r.URL.Query().Get("country"),
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	}

	list, err := h.service.List(filter)
	if err != nil {
		h.writeError(w, err, "Failed to list investors")
		return
	}
	h.writeData(w, http.StatusOK, list)
}

// HandleCreate handles POST /api/investors
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input investors.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	inv, err := h.service.Create(input)
	if err != nil {
		h.writeError(w, err, "Failed to create investor")
		return
	}
	h.writeData(w, http.StatusCreated, inv)
}

// HandleGet handles GET /api/investors/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, err, "Failed to get investor")
		return
	}
	h.writeData(w, http.StatusOK, inv)
}

// HandleGetBySlug handles GET /api/investors/slug/{slug}
func (h *Handler) HandleGetBySlug(w http.ResponseWriter, r *http.Request, slug string) {
	inv, err := h.service.GetBySlug(slug)
	if err != nil {
		h.writeError(w, err, "Failed to get investor")
		return
	}
	h.writeData(w, http.StatusOK, inv)
}

// HandleUpdate handles PUT /api/investors/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var input investors.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	inv, err := h.service.Update(id, input)
	if err != nil {
		h.writeError(w, err, "Failed to update investor")
		return
	}
	h.writeData(w, http.StatusOK, inv)
}

// HandleDelete handles DELETE /api/investors/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(id); err != nil {
		h.writeError(w, err, "Failed to delete investor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetPortfolio handles GET /api/investors/{id}/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request, id string) {
	portfolio, err := h.service.GetPortfolio(id)
	if err != nil {
		h.writeError(w, err, "Failed to get portfolio")
		return
	}
	h.writeData(w, http.StatusOK, portfolio)
}

// HandleEnrich handles POST /api/investors/{id}/enrich
func (h *Handler) HandleEnrich(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.service.EnrichFromWikidata(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Failed to enrich investor")
		return
	}
	h.writeData(w, http.StatusOK, inv)
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, status, response)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Investor not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
