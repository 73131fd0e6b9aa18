// Package api exposes the stored pipeline results to the dashboard. It is a
// read-only surface: all writes happen through the pipeline's tool layer.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sanjuz-cas/SURF/internal/models"
	"github.com/sanjuz-cas/SURF/internal/store"
)

type Server struct {
	Store  *store.Store
	Logger *log.Logger
}

func NewServer(st *store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Store: st, Logger: logger}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return cors(mux)
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{
			"status":    "ok",
			"service":   "surf-feedback-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/api/priorities", s.handlePriorities)
	mux.HandleFunc("/api/stats", s.handleStats)
}

type prioritiesResponse struct {
	Items             []models.PriorityItem `json:"items"`
	TotalAnalyzed     int                   `json:"total_analyzed"`
	TotalRiskEstimate string                `json:"total_risk_estimate"`
	GeneratedAt       string                `json:"generated_at"`
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := s.Store.Priorities(r.Context(), 100)
	if err != nil {
		s.fail(w, "read priorities", err)
		return
	}
	resp := prioritiesResponse{Items: items}
	if resp.Items == nil {
		resp.Items = []models.PriorityItem{}
	}
	run, ok, err := s.Store.LatestRun(r.Context())
	if err != nil {
		s.fail(w, "read run summary", err)
		return
	}
	if ok {
		resp.TotalAnalyzed = run.TotalAnalyzed
		resp.TotalRiskEstimate = run.TotalRiskEstimate
		resp.GeneratedAt = run.GeneratedAt.UTC().Format(time.RFC3339)
	}
	respondJSON(w, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.Store.Stats(r.Context())
	if err != nil {
		s.fail(w, "read stats", err)
		return
	}
	respondJSON(w, stats)
}

func (s *Server) fail(w http.ResponseWriter, what string, err error) {
	s.Logger.Printf("api: %s: %v", what, err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// cors allows the dashboard dev server to read the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
