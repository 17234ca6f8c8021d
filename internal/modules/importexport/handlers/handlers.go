// Package handlers provides HTTP handlers for bulk import and export.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/modules/companies"
	"github.com/atlasresearch/atlas/internal/modules/importexport"
	"github.com/atlasresearch/atlas/internal/modules/investors"
)

const maxImportBody = 16 << 20 // 16 MiB

// Handler handles import/export HTTP requests
type Handler struct {
	service *importexport.Service
	log     zerolog.Logger
}

// NewHandler creates a new import/export handler
func NewHandler(service *importexport.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "importexport").Logger(),
	}
}

// HandleImportInvestors handles POST /api/import-export/import/investors. The body is a
// JSON array, or a CSV document when the Content-Type says so.
func (h *Handler) HandleImportInvestors(w http.ResponseWriter, r *http.Request) {
	var rows []investors.CreateInput
	if isCSV(r) {
		body, err := readBody(r)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		rows, err = importexport.ParseInvestorsCSV(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else if err := decodeJSON(r, &rows); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	h.writeData(w, http.StatusOK, h.service.ImportInvestors(rows))
}

// HandleImportCompanies handles POST /api/import-export/import/companies
func (h *Handler) HandleImportCompanies(w http.ResponseWriter, r *http.Request) {
	var rows []companies.CreateInput
	if isCSV(r) {
		body, err := readBody(r)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		rows, err = importexport.ParseCompaniesCSV(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else if err := decodeJSON(r, &rows); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	h.writeData(w, http.StatusOK, h.service.ImportCompanies(rows))
}

// HandleImportInvestments handles POST /api/import-export/import/investments
func (h *Handler) HandleImportInvestments(w http.ResponseWriter, r *http.Request) {
	var rows []importexport.InvestmentImport
	if err := decodeJSON(r, &rows); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	h.writeData(w, http.StatusOK, h.service.ImportInvestments(rows))
}

// HandleExportAll handles GET /api/import-export/export/all
func (h *Handler) HandleExportAll(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.ExportAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export data")
		http.Error(w, "Failed to export data", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusOK, bundle)
}

// HandleExportInvestors handles GET /api/import-export/export/investors?format=json|csv
func (h *Handler) HandleExportInvestors(w http.ResponseWriter, r *http.Request) {
	if wantsCSV(r) {
		data, err := h.service.ExportInvestorsCSV()
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to export investors")
			http.Error(w, "Failed to export investors", http.StatusInternalServerError)
			return
		}
		writeCSV(w, "investors.csv", data)
		return
	}

	list, err := h.service.ExportInvestors()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export investors")
		http.Error(w, "Failed to export investors", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusOK, list)
}

// HandleExportCompanies handles GET /api/import-export/export/companies?format=json|csv
func (h *Handler) HandleExportCompanies(w http.ResponseWriter, r *http.Request) {
	if wantsCSV(r) {
		data, err := h.service.ExportCompaniesCSV()
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to export companies")
			http.Error(w, "Failed to export companies", http.StatusInternalServerError)
			return
		}
		writeCSV(w, "companies.csv", data)
		return
	}

	list, err := h.service.ExportCompanies()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export companies")
		http.Error(w, "Failed to export companies", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusOK, list)
}

// HandleExportInvestments handles GET /api/import-export/export/investments?format=json|csv
func (h *Handler) HandleExportInvestments(w http.ResponseWriter, r *http.Request) {
	if wantsCSV(r) {
		data, err := h.service.ExportInvestmentsCSV()
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to export investments")
			http.Error(w, "Failed to export investments", http.StatusInternalServerError)
			return
		}
		writeCSV(w, "investments.csv", data)
		return
	}

	list, err := h.service.ExportInvestments()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export investments")
		http.Error(w, "Failed to export investments", http.StatusInternalServerError)
		return
	}
	h.writeData(w, http.StatusOK, list)
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

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func isCSV(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "text/csv")
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxImportBody))
}

func decodeJSON(r *http.Request, out interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxImportBody)).Decode(out)
}
