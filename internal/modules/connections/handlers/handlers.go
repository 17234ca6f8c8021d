// Package handlers provides HTTP handlers for the co-investment graph.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/connections"
)

// Handler handles connection graph HTTP requests
type Handler struct {
	service *connections.Service
	log     zerolog.Logger
}

// NewHandler creates a new connection handler
func NewHandler(service *connections.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "connections").Logger(),
	}
}

// HandleDiscover handles POST /api/connections/discover
func (h *Handler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.service.DiscoverConnections()
	if err != nil {
		h.writeError(w, err, "Failed to discover connections")
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{"pairs": pairs})
}

// HandleInvestorNetwork handles GET /api/connections/investors/{id}/network
func (h *Handler) HandleInvestorNetwork(w http.ResponseWriter, r *http.Request, id string) {
	network, err := h.service.GetInvestorNetwork(id, queryInt(r, "minStrength", 1))
	if err != nil {
		h.writeError(w, err, "Failed to get investor network")
		return
	}
	h.writeData(w, http.StatusOK, network)
}

// HandleCompanyNetwork handles GET /api/connections/companies/{id}/network
func (h *Handler) HandleCompanyNetwork(w http.ResponseWriter, r *http.Request, id string) {
	network, err := h.service.GetCompanyNetwork(id, queryInt(r, "limit", 20))
	if err != nil {
		h.writeError(w, err, "Failed to get company network")
		return
	}
	h.writeData(w, http.StatusOK, network)
}

// HandleStats handles GET /api/connections/statistics
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetNetworkStats()
	if err != nil {
		h.writeError(w, err, "Failed to get network stats")
		return
	}
	h.writeData(w, http.StatusOK, stats)
}

// HandlePotentialCoInvestors handles GET /api/connections/companies/{id}/potential-investors
func (h *Handler) HandlePotentialCoInvestors(w http.ResponseWriter, r *http.Request, id string) {
	candidates, err := h.service.FindPotentialCoInvestors(id, queryInt(r, "limit", 10))
	if err != nil {
		h.writeError(w, err, "Failed to find potential co-investors")
		return
	}
	h.writeData(w, http.StatusOK, candidates)
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
		http.Error(w, "Not found", http.StatusNotFound)
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
