package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/baxromumarov/fresher-hunter/internal/app"
	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/report"
)

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	rep, err := s.runs.Latest(r.Context())
	if errors.Is(err, report.ErrNoReport) {
		respondError(w, http.StatusNotFound, "No run has finished yet")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load latest run: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	err := s.runs.Trigger(s.base)
	if errors.Is(err, app.ErrRunInProgress) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to start run: "+err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.runs.Stats()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running":   s.runs.Running(),
		"available": ok,
		"stats":     stats,
	})
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 50)

	domains, err := s.runs.Domains(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch domains: "+err.Error())
		return
	}
	total := len(domains)
	page := []core.DomainRecord{}
	if offset < total {
		end := min(offset+limit, total)
		page = domains[offset:end]
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  page,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func parsePagination(r *http.Request, defaultLimit int) (int, int) {
	q := r.URL.Query()
	limit := defaultLimit
	offset := 0

	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
