// Package handlers provides HTTP handlers for investment operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/investments"
)

// Handler handles investment HTTP requests
type Handler struct {
	service *investments.Service
	log     zerolog.Logger
}

// NewHandler creates a new investment handler
func NewHandler(service *investments.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "investments").Logger(),
	}
}

// HandleList handles GET /api/investments
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := investments.ListFilter{
		InvestorID: r.URL.Query().Get("investorId"),
		CompanyID:  r.URL.Query().Get("companyId"),
		Stage:      domain.InvestmentStage(r.URL.Query().Get("stage")),
		Status:     domain.InvestmentStatus(r.URL.Query().Get("status")),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}

	list, err := h.service.List(filter)
	if err != nil {
		h.writeError(w, err, "Failed to list investments")
		return
	}
	h.writeData(w, http.StatusOK, list)
}

// HandleCreate handles POST /api/investments
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input investments.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	inv, err := h.service.Create(input)
	if err != nil {
		h.writeError(w, err, "Failed to create investment")
		return
	}
	h.writeData(w, http.StatusCreated, inv)
}

// HandleGet handles GET /api/investments/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, err, "Failed to get investment")
		return
	}
	h.writeData(w, http.StatusOK, inv)
}

// HandleUpdate handles PUT /api/investments/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var input investments.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	inv, err := h.service.Update(id, input)
	if err != nil {
		h.writeError(w, err, "Failed to update investment")
		return
	}
	h.writeData(w, http.StatusOK, inv)
}

// HandleDelete handles DELETE /api/investments/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(id); err != nil {
		h.writeError(w, err, "Failed to delete investment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatistics handles GET /api/investments/statistics
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics()
	if err != nil {
		h.writeError(w, err, "Failed to compute statistics")
		return
	}
	h.writeData(w, http.StatusOK, stats)
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
		http.Error(w, err.Error(), http.StatusNotFound)
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
