package adminhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz_ReturnsOK(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestTickMetrics_ReflectsLastReportedTick(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	s.ReportTick(15*time.Millisecond, 42, 7)

	req := httptest.NewRequest(http.MethodGet, "/metrics/tick", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats TickStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(1), stats.TickCount)
	assert.Equal(t, 42, stats.EntityCount)
	assert.Equal(t, 7, stats.SessionCount)
}

func TestTickMetrics_AccumulatesTickCountAcrossReports(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	s.ReportTick(time.Millisecond, 1, 1)
	s.ReportTick(time.Millisecond, 2, 2)
	s.ReportTick(time.Millisecond, 3, 3)

	req := httptest.NewRequest(http.MethodGet, "/metrics/tick", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	var stats TickStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(3), stats.TickCount)
	assert.Equal(t, 3, stats.EntityCount)
}
