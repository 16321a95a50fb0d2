// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves research runs and research history over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/guardrails"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Runner executes one research run.
type Runner interface {
	Run(ctx context.Context, query, threadID string) (*types.ResearchState, error)
}

// HistoryReader is the read side of the history store.
type HistoryReader interface {
	RecentQueries(ctx context.Context, limit int) ([]types.QueryRecord, error)
	SearchPast(ctx context.Context, keyword string) ([]types.QueryRecord, error)
	QueryWithResults(ctx context.Context, id int64) (*types.QueryResult, error)
	Statistics(ctx context.Context) (types.Statistics, error)
}

// Server exposes the research pipeline. Runs are serialized so model and
// search calls never overlap.
type Server struct {
	runner     Runner
	history    HistoryReader
	runTimeout time.Duration
	log        *zap.Logger

	// runSlot holds one token while a run is in flight.
	runSlot chan struct{}
}

// NewServer returns a Server. history may be nil when persistence is off;
// a zero runTimeout means runs are bounded only by the request context.
func NewServer(runner Runner, history HistoryReader, runTimeout time.Duration, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		runner:     runner,
		history:    history,
		runTimeout: runTimeout,
		log:        log,
		runSlot:    make(chan struct{}, 1),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/research", s.research)
		r.Get("/history", s.listHistory)
		r.Get("/history/{id}", s.getHistory)
		r.Get("/stats", s.stats)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

type researchRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
}

type researchResponse struct {
	*types.ResearchState
	Failure string `json:"failure,omitempty"`
}

func (s *Server) research(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if ok, msg := guardrails.Validate(req.Query); !ok {
		writeError(w, msg, http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	select {
	case s.runSlot <- struct{}{}:
	case <-ctx.Done():
		s.log.Info("research request abandoned while queued", zap.String("query", req.Query))
		writeError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	defer func() { <-s.runSlot }()

	// The run timeout starts once the slot is held, not while queued.
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	st, err := s.runner.Run(ctx, req.Query, req.ThreadID)

	if err != nil {
		s.log.Error("research run failed", zap.String("query", req.Query), zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, researchResponse{ResearchState: st, Failure: err.Error()}, status)
		return
	}
	writeJSON(w, researchResponse{ResearchState: st}, http.StatusOK)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, "history store disabled", http.StatusServiceUnavailable)
		return
	}

	var (
		records []types.QueryRecord
		err     error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		records, err = s.history.SearchPast(r.Context(), q)
	} else {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil || n < 1 {
				writeError(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}
		records, err = s.history.RecentQueries(r.Context(), limit)
	}
	if err != nil {
		s.log.Error("listing history failed", zap.Error(err))
		writeError(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"queries": records}, http.StatusOK)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, "history store disabled", http.StatusServiceUnavailable)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "invalid query id", http.StatusBadRequest)
		return
	}

	res, err := s.history.QueryWithResults(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, "query not found", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("loading query failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, "history store disabled", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.history.Statistics(r.Context())
	if err != nil {
		s.log.Error("loading statistics failed", zap.Error(err))
		writeError(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, msg string, statusCode int) {
	writeJSON(w, map[string]string{"error": msg}, statusCode)
}
