// Package server exposes the Slack events endpoint, a health check and the
// read-only usage dashboard data over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
	"go.uber.org/zap"
)

// DefaultRecentRows is how many log rows /usage returns without ?limit.
const DefaultRecentRows = 25

// Server is the SkillCraft HTTP surface.
type Server struct {
	addr       string
	version    string
	slack      http.Handler
	aggregator *usage.Aggregator
	logger     *zap.Logger
	httpServer *http.Server
}

// Config holds configuration for the server.
type Config struct {
	Addr    string // listen address (default: ":8000")
	Version string // reported by /health

	// Slack handles POST /slack/events. Nil leaves the route unregistered.
	Slack http.Handler

	Aggregator *usage.Aggregator
	Logger     *zap.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{
		addr:       cfg.Addr,
		version:    cfg.Version,
		slack:      cfg.Slack,
		aggregator: cfg.Aggregator,
		logger:     cfg.Logger,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.slack != nil {
		mux.Handle("/slack/events", s.slack)
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/usage", s.handleUsage)
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// handleHealth returns a liveness response.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, HealthResponse{Status: HealthStatusOK, Version: s.version})
}

// handleUsage returns the totals and the most recent rows of the usage log.
// GET /usage?limit=N
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := DefaultRecentRows
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	snap, err := s.aggregator.Snapshot(limit)
	if err != nil {
		s.logger.Error("failed to read usage log", zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to read usage log: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, NewUsageResponse(snap))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
