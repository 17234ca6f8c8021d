// Package handlers provides HTTP handlers for job queues and scraping.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/jobs"
)

// Handler handles job queue HTTP requests
type Handler struct {
	manager *jobs.Manager
	audit   *jobs.ScrapeAuditStore
	log     zerolog.Logger
}

// NewHandler creates a new jobs handler
func NewHandler(manager *jobs.Manager, audit *jobs.ScrapeAuditStore, log zerolog.Logger) *Handler {
	return &Handler{
		manager: manager,
		audit:   audit,
		log:     log.With().Str("handler", "jobs").Logger(),
	}
}

// HandleJobStatus handles GET /api/jobs/{id}
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request, id string) {
	status, err := h.manager.GetJobStatus(id)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get job status")
		http.Error(w, "Failed to get job status", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusOK, status)
}

// HandleStats handles GET /api/jobs/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.manager.AllStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get queue stats")
		http.Error(w, "Failed to get queue stats", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusOK, stats)
}

type scrapeRequest struct {
	InvestorID string `json:"investorId"`
	Target     string `json:"target"`
}

// HandleScrape handles POST /api/scrape
func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Target == "" {
		http.Error(w, "target is required", http.StatusBadRequest)
		return
	}

	jobID, err := h.manager.EnqueueScrapePortfolio(req.InvestorID, req.Target)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue scrape")
		http.Error(w, "Failed to enqueue scrape", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// HandleScrapeRecord handles GET /api/scrape/{id}
func (h *Handler) HandleScrapeRecord(w http.ResponseWriter, r *http.Request, id string) {
	record, err := h.audit.GetByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Scrape record not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to get scrape record")
		http.Error(w, "Failed to get scrape record", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusOK, record)
}

// HandleScrapeHistory handles GET /api/scrape/history/{investorId}
func (h *Handler) HandleScrapeHistory(w http.ResponseWriter, r *http.Request, investorID string) {
	history, err := h.audit.ListForInvestor(investorID, 20)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list scrape history")
		http.Error(w, "Failed to list scrape history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []domain.ScrapingJob{}
	}
	h.writeData(w, http.StatusOK, history)
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
