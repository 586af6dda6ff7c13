package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coinlake/crypto-etl/internal/orchestrator"
	"github.com/coinlake/crypto-etl/internal/storage/memory"
	"github.com/coinlake/crypto-etl/internal/store"
)

type fakeTrigger struct {
	result orchestrator.Result
	err    error
	source string
	limit  int
}

func (t *fakeTrigger) RunAll(_ context.Context, sourceFilter string, limit int) (orchestrator.Result, error) {
	t.source = sourceFilter
	t.limit = limit
	if t.err != nil {
		return orchestrator.Result{}, t.err
	}
	return t.result, nil
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

type serverFixture struct {
	server      *Server
	market      *memory.MarketStore
	checkpoints *memory.CheckpointStore
	runs        *memory.RunStore
	trigger     *fakeTrigger
	pinger      *fakePinger
}

func newTestServer() *serverFixture {
	f := &serverFixture{
		market:      memory.NewMarketStore(),
		checkpoints: memory.NewCheckpointStore(),
		runs:        memory.NewRunStore(),
		trigger:     &fakeTrigger{},
		pinger:      &fakePinger{},
	}
	f.server = NewServer(f.market, f.checkpoints, f.runs, f.trigger, f.pinger, Config{DefaultLimit: 100}, zap.NewNop())
	return f
}

func (f *serverFixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func seedPrices(t *testing.T, f *serverFixture, n int) {
	t.Helper()
	prices := make([]store.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		price := float64(100 + i)
		prices = append(prices, store.PricePoint{
			CoinID:    fmt.Sprintf("coin-%d", i),
			Symbol:    fmt.Sprintf("C%d", i),
			PriceUSD:  &price,
			Timestamp: time.Date(2026, 8, 1, 12, 0, i, 0, time.UTC),
			Source:    "coingecko",
		})
	}
	require.NoError(t, f.market.AppendBatch(context.Background(), nil, prices))
}

func TestServer_Root_ListsEndpoints(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	rec := f.do(t, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/run-etl")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_GetData_PaginatesAndFilters(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	seedPrices(t, f, 25)

	rec := f.do(t, http.MethodGet, "/data?limit=10&offset=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 25, resp.TotalRecords)
	require.Equal(t, 2, resp.Page)
	require.Len(t, resp.Data, 10)
	require.NotEmpty(t, resp.RequestID)

	rec = f.do(t, http.MethodGet, "/data?symbol=C3")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = dataResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 1, resp.TotalRecords)
}

func TestServer_GetData_RejectsBadParams(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/data?limit=0").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/data?limit=500").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/data?offset=-1").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/data?limit=abc").Code)
}

func TestServer_GetHealth_ReportsCheckpoints(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	rec := f.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"not_started"`)
	require.Contains(t, rec.Body.String(), `"healthy"`)

	require.NoError(t, f.checkpoints.Upsert(context.Background(), store.CheckpointUpdate{
		Source: "coingecko",
		Delta:  42,
		Status: store.RunSuccess,
	}, time.Now().UTC()))

	rec = f.do(t, http.MethodGet, "/health")
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, "connected", resp.Database)
	perSource := resp.ETLStatus.(map[string]any)
	require.Contains(t, perSource, "coingecko")
}

func TestServer_GetHealth_UnhealthyWhenPingFails(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	f.pinger.err = errors.New("connection refused")

	rec := f.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"unhealthy"`)
	require.Contains(t, rec.Body.String(), `"disconnected"`)
}

func TestServer_GetStats_DerivesDuration(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.checkpoints.MarkRunning(context.Background(), "csv", start))
	require.NoError(t, f.checkpoints.Upsert(context.Background(), store.CheckpointUpdate{
		Source: "csv",
		Delta:  7,
		Status: store.RunSuccess,
	}, start))
	require.NoError(t, f.checkpoints.MarkRunning(context.Background(), "csv", start))
	require.NoError(t, f.checkpoints.Upsert(context.Background(), store.CheckpointUpdate{
		Source: "csv",
		Delta:  3,
		Status: store.RunSuccess,
	}, start.Add(90*time.Second)))

	rec := f.do(t, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 1)
	require.Equal(t, "csv", stats[0].Source)
	require.EqualValues(t, 10, stats[0].TotalRecords)
	require.NotNil(t, stats[0].LastRunDurationSeconds)
	require.InDelta(t, 90.0, *stats[0].LastRunDurationSeconds, 0.001)
}

func TestServer_GetRuns_FiltersBySource(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, src := range []string{"coingecko", "csv", "coingecko"} {
		require.NoError(t, f.runs.Create(context.Background(), store.Run{
			RunID:     fmt.Sprintf("%s_%d", src, i),
			Source:    src,
			StartTime: base.Add(time.Duration(i) * time.Minute),
			Status:    store.RunRunning,
		}))
	}

	rec := f.do(t, http.MethodGet, "/runs?source=coingecko")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	// newest first
	require.Equal(t, "coingecko_2", runs[0].RunID)
}

func TestServer_RunETL_DelegatesToTrigger(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	f.trigger.result = orchestrator.Result{
		OverallStatus: orchestrator.OverallPartial,
		Sources: []orchestrator.SourceResult{
			{Source: "coingecko", Status: "success", RecordsProcessed: 50},
			{Source: "csv", Status: "failed", Error: "file missing"},
		},
	}

	rec := f.do(t, http.MethodPost, "/run-etl?source=coingecko&limit=25")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "coingecko", f.trigger.source)
	require.Equal(t, 25, f.trigger.limit)
	require.Contains(t, rec.Body.String(), `"overall_status":"partial"`)
	require.Contains(t, rec.Body.String(), "ETL process completed")
}

func TestServer_RunETL_UnknownSource(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	f.trigger.err = errors.New(`unknown source "kraken"`)

	rec := f.do(t, http.MethodPost, "/run-etl?source=kraken")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown source")
}

func TestServer_CompareRuns(t *testing.T) {
	t.Parallel()

	f := newTestServer()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"coingecko_1", "coingecko_2"} {
		require.NoError(t, f.runs.Create(context.Background(), store.Run{
			RunID:     id,
			Source:    "coingecko",
			StartTime: base.Add(time.Duration(i) * time.Hour),
			Status:    store.RunRunning,
		}))
	}
	require.NoError(t, f.runs.Finalize(context.Background(), "coingecko_1", base.Add(10*time.Second), store.RunResult{
		Status:           store.RunSuccess,
		RecordsProcessed: 100,
	}))
	require.NoError(t, f.runs.Finalize(context.Background(), "coingecko_2", base.Add(time.Hour+30*time.Second), store.RunResult{
		Status:           store.RunSuccess,
		RecordsProcessed: 60,
	}))

	rec := f.do(t, http.MethodGet, "/compare-runs?run_id_1=coingecko_1&run_id_2=coingecko_2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Differences map[string]any `json:"differences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 40, resp.Differences["records_processed_diff"])
	require.Equal(t, false, resp.Differences["status_changed"])

	rec = f.do(t, http.MethodGet, "/compare-runs?run_id_1=coingecko_1&run_id_2=missing")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/compare-runs?run_id_1=coingecko_1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Metrics_Exposed(t *testing.T) {
	f := newTestServer()
	rec := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}
