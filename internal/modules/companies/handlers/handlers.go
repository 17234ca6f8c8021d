// Package handlers provides HTTP handlers for company operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/aggregation"
	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
)

// Enricher merges external provider data into a company record.
type Enricher interface {
	EnrichCompany(ctx context.Context, companyID string) (*aggregation.Enriched, error)
}

// Handler handles company HTTP requests
type Handler struct {
	service  *companies.Service
	enricher Enricher
	log      zerolog.Logger
}

// NewHandler creates a new company handler. enricher may be nil, in which
// case the enrich endpoint reports the feature as unavailable.
func NewHandler(service *companies.Service, enricher Enricher, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		enricher: enricher,
		log:      log.With().Str("handler", "companies").Logger(),
	}
}

// HandleList handles GET /api/companies
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := companies.ListFilter{
		Type:     domain.CompanyType(r.URL.Query().Get("type")),
		Industry: r.URL.Query().Get("industry"),
		Country:  r.URL.Query().Get("country"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}

	list, err := h.service.List(filter)
	if err != nil {
		h.writeError(w, err, "Failed to list companies")
		return
	}
	h.writeData(w, http.StatusOK, list)
}

// HandleCreate handles POST /api/companies
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input companies.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	c, err := h.service.Create(input)
	if err != nil {
		h.writeError(w, err, "Failed to create company")
		return
	}
	h.writeData(w, http.StatusCreated, c)
}

// HandleGet handles GET /api/companies/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, err, "Failed to get company")
		return
	}
	h.writeData(w, http.StatusOK, c)
}

// HandleGetBySlug handles GET /api/companies/slug/{slug}
func (h *Handler) HandleGetBySlug(w http.ResponseWriter, r *http.Request, slug string) {
	c, err := h.service.GetBySlug(slug)
	if err != nil {
		h.writeError(w, err, "Failed to get company")
		return
	}
	h.writeData(w, http.StatusOK, c)
}

// HandleGetByTicker handles GET /api/companies/ticker/{ticker}
func (h *Handler) HandleGetByTicker(w http.ResponseWriter, r *http.Request, ticker string) {
	c, err := h.service.GetByTicker(ticker)
	if err != nil {
		h.writeError(w, err, "Failed to get company")
		return
	}
	h.writeData(w, http.StatusOK, c)
}

// HandleUpdate handles PUT /api/companies/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var input companies.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	c, err := h.service.Update(id, input)
	if err != nil {
		h.writeError(w, err, "Failed to update company")
		return
	}
	h.writeData(w, http.StatusOK, c)
}

// HandleDelete handles DELETE /api/companies/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(id); err != nil {
		h.writeError(w, err, "Failed to delete company")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetFundingHistory handles GET /api/companies/{id}/funding
func (h *Handler) HandleGetFundingHistory(w http.ResponseWriter, r *http.Request, id string) {
	history, err := h.service.GetFundingHistory(id)
	if err != nil {
		h.writeError(w, err, "Failed to get funding history")
		return
	}
	h.writeData(w, http.StatusOK, history)
}

// HandleGetInvestors handles GET /api/companies/{id}/investors
func (h *Handler) HandleGetInvestors(w http.ResponseWriter, r *http.Request, id string) {
	investments, err := h.service.GetInvestors(id)
	if err != nil {
		h.writeError(w, err, "Failed to get company investors")
		return
	}
	h.writeData(w, http.StatusOK, investments)
}

// HandleCheckStale handles GET /api/companies/{id}/stale
func (h *Handler) HandleCheckStale(w http.ResponseWriter, r *http.Request, id string) {
	report, err := h.service.CheckStale(id)
	if err != nil {
		h.writeError(w, err, "Failed to check staleness")
		return
	}
	h.writeData(w, http.StatusOK, report)
}

// HandleEnrich handles POST /api/companies/{id}/enrich. It runs the full
// provider aggregation synchronously and returns the merged result.
func (h *Handler) HandleEnrich(w http.ResponseWriter, r *http.Request, id string) {
	if h.enricher == nil {
		http.Error(w, "Enrichment is not available", http.StatusServiceUnavailable)
		return
	}

	enriched, err := h.enricher.EnrichCompany(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Failed to enrich company")
		return
	}
	h.writeData(w, http.StatusOK, enriched)
}

// HandleRequestFetch handles POST /api/companies/{id}/fetch
func (h *Handler) HandleRequestFetch(w http.ResponseWriter, r *http.Request, id string) {
	jobID, err := h.service.RequestFetch(id)
	if err != nil {
		h.writeError(w, err, "Failed to queue data fetch")
		return
	}
	h.writeData(w, http.StatusAccepted, map[string]string{"jobId": jobID})
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
		http.Error(w, "Company not found", http.StatusNotFound)
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
