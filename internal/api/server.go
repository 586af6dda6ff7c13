// Package api exposes the HTTP query and trigger interface for the ETL
// service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/coinlake/crypto-etl/internal/metrics"
	"github.com/coinlake/crypto-etl/internal/orchestrator"
	"github.com/coinlake/crypto-etl/internal/store"
)

// Version reported by the root endpoint.
const Version = "1.0.0"

// Trigger starts a synchronous ingestion pass across sources.
type Trigger interface {
	RunAll(ctx context.Context, sourceFilter string, limit int) (orchestrator.Result, error)
}

// Pinger verifies storage connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config tunes the Server.
type Config struct {
	// DefaultLimit is the per-source record limit applied to triggered
	// runs when the request does not override it.
	DefaultLimit int
	// RequestTimeout bounds handler execution; the trigger endpoint runs
	// a full ingestion pass and needs headroom.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the stores and the orchestration trigger.
type Server struct {
	router      chi.Router
	market      store.MarketStore
	checkpoints store.CheckpointStore
	runs        store.RunStore
	trigger     Trigger
	pinger      Pinger
	cfg         Config
	logger      *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The pinger may
// be nil when storage has no connection to check.
func NewServer(
	market store.MarketStore,
	checkpoints store.CheckpointStore,
	runs store.RunStore,
	trigger Trigger,
	pinger Pinger,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	s := &Server{
		market:      market,
		checkpoints: checkpoints,
		runs:        runs,
		trigger:     trigger,
		pinger:      pinger,
		cfg:         cfg,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/", s.root)
	r.Get("/data", s.getData)
	r.Get("/health", s.getHealth)
	r.Get("/stats", s.getStats)
	r.Get("/runs", s.getRuns)
	r.Get("/compare-runs", s.compareRuns)
	r.Post("/run-etl", s.runETL)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
