// Package api exposes the crawler's status and a manual trigger over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/observability"
	"github.com/baxromumarov/fresher-hunter/internal/report"
)

// Runs is the part of app.Runner the server needs.
type Runs interface {
	Trigger(ctx context.Context) error
	Running() bool
	Latest(ctx context.Context) (report.Report, error)
	Stats() (observability.StatsSnapshot, bool)
	Domains(ctx context.Context) ([]core.DomainRecord, error)
}

type Server struct {
	router *chi.Mux
	runs   Runs
	// base outlives individual requests; triggered crawls run under it.
	base context.Context
}

func NewServer(base context.Context, runs Runs) *Server {
	s := &Server{
		router: chi.NewRouter(),
		runs:   runs,
		base:   base,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/runs/latest", s.handleLatestRun)
	s.router.Post("/runs", s.handleTriggerRun)
	s.router.Get("/stats", s.handleStats)
	s.router.Get("/domains", s.handleListDomains)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
