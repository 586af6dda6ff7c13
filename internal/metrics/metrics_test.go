package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, etlRunsTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserversAfterInit(t *testing.T) {
	Init()

	ObserveRun("coingecko", "success", 1.5)
	AddRecords("coingecko", 100, 2)
	ObserveHTTPRequest("GET", "/data", 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "etl_runs_total")
	require.Contains(t, body, "etl_records_processed_total")
}
