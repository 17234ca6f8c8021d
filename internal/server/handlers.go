// Package server provides the HTTP server and routing for Atlas.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "atlas",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleSystemStatus reports process, host and storage health.
// GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	databases := map[string]string{
		"research": "ok",
		"cache":    "ok",
	}
	if s.cfg.ResearchDB != nil {
		if err := s.cfg.ResearchDB.HealthCheck(r.Context()); err != nil {
			databases["research"] = err.Error()
		}
	}
	if s.cfg.CacheDB != nil {
		if err := s.cfg.CacheDB.HealthCheck(r.Context()); err != nil {
			databases["cache"] = err.Error()
		}
	}

	response := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startupTime).Seconds()),
		"cpu_percent":    cpuPercent,
		"ram_percent":    ramPercent,
		"data_dir_mb":    s.getDirSize(s.cfg.DataDir),
		"databases":      databases,
	}

	if info, err := host.Info(); err == nil {
		response["host"] = map[string]interface{}{
			"hostname": info.Hostname,
			"os":       info.OS,
			"platform": info.Platform,
			"uptime":   info.Uptime,
		}
	}

	if s.cfg.JobManager != nil {
		if stats, err := s.cfg.JobManager.AllStats(); err == nil {
			response["queues"] = stats
		} else {
			s.log.Warn().Err(err).Msg("Failed to collect queue statistics")
		}
	}

	for _, status := range databases {
		if status != "ok" {
			response["status"] = "degraded"
			break
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a short sampling interval so the endpoint stays responsive.
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (s *Server) getDirSize(dirPath string) float64 {
	if dirPath == "" {
		return 0
	}

	var totalSize int64
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
