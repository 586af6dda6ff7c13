package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/coinlake/crypto-etl/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type priceResponse struct {
	CoinID    string    `json:"coin_id"`
	Symbol    string    `json:"symbol"`
	Name      *string   `json:"name"`
	PriceUSD  *float64  `json:"price_usd"`
	MarketCap *float64  `json:"market_cap"`
	Volume24h *float64  `json:"volume_24h"`
	Change24h *float64  `json:"change_24h"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type dataResponse struct {
	RequestID    string          `json:"request_id"`
	APILatencyMS float64         `json:"api_latency_ms"`
	TotalRecords int64           `json:"total_records"`
	Page         int             `json:"page"`
	Limit        int             `json:"limit"`
	Data         []priceResponse `json:"data"`
}

type sourceHealth struct {
	LastRunStatus    string     `json:"last_run_status"`
	LastRunTime      *time.Time `json:"last_run_time"`
	RecordsProcessed int64      `json:"records_processed"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	ETLStatus any       `json:"etl_status"`
	Timestamp time.Time `json:"timestamp"`
}

type statsResponse struct {
	Source                 string     `json:"source"`
	TotalRecords           int64      `json:"total_records"`
	LastRunStart           *time.Time `json:"last_run_start"`
	LastRunEnd             *time.Time `json:"last_run_end"`
	LastRunStatus          string     `json:"last_run_status"`
	LastRunDurationSeconds *float64   `json:"last_run_duration_seconds"`
	RecordsProcessed       int64      `json:"records_processed"`
	LastError              *string    `json:"last_error"`
}

type runResponse struct {
	RunID            string     `json:"run_id"`
	Source           string     `json:"source"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	Status           string     `json:"status"`
	RecordsProcessed int64      `json:"records_processed"`
	RecordsFailed    int64      `json:"records_failed"`
	DurationSeconds  *float64   `json:"duration_seconds"`
	ErrorMessage     *string    `json:"error_message"`
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "crypto-etl",
		"version":   Version,
		"endpoints": []string{"/data", "/health", "/stats", "/runs", "/compare-runs", "/run-etl", "/metrics"},
	})
}

func (s *Server) getData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be >= 0")
		return
	}

	prices, total, err := s.market.ListPrices(r.Context(), store.PriceFilter{
		Symbol: r.URL.Query().Get("symbol"),
		Source: r.URL.Query().Get("source"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("list prices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error fetching data")
		return
	}

	data := make([]priceResponse, 0, len(prices))
	for _, p := range prices {
		data = append(data, priceResponse{
			CoinID:    p.CoinID,
			Symbol:    p.Symbol,
			Name:      p.Name,
			PriceUSD:  p.PriceUSD,
			MarketCap: p.MarketCap,
			Volume24h: p.Volume24h,
			Change24h: p.Change24h,
			Timestamp: p.Timestamp,
			Source:    p.Source,
		})
	}
	writeJSON(w, http.StatusOK, dataResponse{
		RequestID:    RequestID(r.Context()),
		APILatencyMS: float64(time.Since(start).Microseconds()) / 1000,
		TotalRecords: total,
		Page:         offset/limit + 1,
		Limit:        limit,
		Data:         data,
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	dbConnected := true
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			dbConnected = false
		}
	}

	var etlStatus any
	checkpoints, err := s.checkpoints.List(r.Context())
	switch {
	case err != nil:
		etlStatus = "error"
	case len(checkpoints) == 0:
		etlStatus = "not_started"
	default:
		perSource := make(map[string]sourceHealth, len(checkpoints))
		for _, cp := range checkpoints {
			perSource[cp.Source] = sourceHealth{
				LastRunStatus:    string(cp.LastRunStatus),
				LastRunTime:      cp.LastRunEnd,
				RecordsProcessed: cp.RecordsProcessed,
			}
		}
		etlStatus = perSource
	}

	status := "healthy"
	database := "connected"
	if !dbConnected {
		status = "unhealthy"
		database = "disconnected"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Database:  database,
		ETLStatus: etlStatus,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := s.checkpoints.List(r.Context())
	if err != nil {
		s.logger.Error("list checkpoints", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error fetching stats")
		return
	}

	stats := make([]statsResponse, 0, len(checkpoints))
	for _, cp := range checkpoints {
		var duration *float64
		if cp.LastRunStart != nil && cp.LastRunEnd != nil {
			d := cp.LastRunEnd.Sub(*cp.LastRunStart).Seconds()
			duration = &d
		}
		stats = append(stats, statsResponse{
			Source:                 cp.Source,
			TotalRecords:           cp.RecordsProcessed,
			LastRunStart:           cp.LastRunStart,
			LastRunEnd:             cp.LastRunEnd,
			LastRunStatus:          string(cp.LastRunStatus),
			LastRunDurationSeconds: duration,
			RecordsProcessed:       cp.RecordsProcessed,
			LastError:              cp.LastError,
		})
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), store.RunFilter{
		Source: r.URL.Query().Get("source"),
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error fetching runs")
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) runETL(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion trigger not configured")
		return
	}
	limit := queryInt(r, "limit", s.cfg.DefaultLimit)
	if limit < 1 {
		writeError(w, http.StatusBadRequest, "limit must be >= 1")
		return
	}
	result, err := s.trigger.RunAll(r.Context(), r.URL.Query().Get("source"), limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ETL process completed",
		"results": result,
	})
}

func (s *Server) compareRuns(w http.ResponseWriter, r *http.Request) {
	id1 := r.URL.Query().Get("run_id_1")
	id2 := r.URL.Query().Get("run_id_2")
	if id1 == "" || id2 == "" {
		writeError(w, http.StatusBadRequest, "run_id_1 and run_id_2 are required")
		return
	}

	run1, err1 := s.runs.Get(r.Context(), id1)
	run2, err2 := s.runs.Get(r.Context(), id2)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusNotFound, "one or both runs not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_1": toRunResponse(run1),
		"run_2": toRunResponse(run2),
		"differences": map[string]any{
			"records_processed_diff": run1.RecordsProcessed - run2.RecordsProcessed,
			"duration_diff":          floatOrZero(run1.DurationSeconds) - floatOrZero(run2.DurationSeconds),
			"status_changed":         run1.Status != run2.Status,
		},
	})
}

func toRunResponse(run store.Run) runResponse {
	return runResponse{
		RunID:            run.RunID,
		Source:           run.Source,
		StartTime:        run.StartTime,
		EndTime:          run.EndTime,
		Status:           string(run.Status),
		RecordsProcessed: run.RecordsProcessed,
		RecordsFailed:    run.RecordsFailed,
		DurationSeconds:  run.DurationSeconds,
		ErrorMessage:     run.ErrorMessage,
	}
}

func floatOrZero(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
