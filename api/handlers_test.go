package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sentinel/config"
	"sentinel/core"
	"sentinel/correlate"
	"sentinel/ml"
	"sentinel/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scoringStub returns a fixed phishing score.
type scoringStub struct {
	score int
}

func (s *scoringStub) Analyze(ctx context.Context, content string) (*ml.PhishingResult, error) {
	return &ml.PhishingResult{Score: s.score, Confidence: 80}, nil
}

// verdictStub returns a fixed deepfake verdict.
type verdictStub struct {
	verdict ml.DeepfakeResult
}

func (v *verdictStub) Analyze(ctx context.Context, meta ml.FileMeta) (*ml.DeepfakeResult, error) {
	out := v.verdict
	return &out, nil
}

type testEnv struct {
	api   *API
	store *storage.MemoryStore
	hub   *Hub
}

func newTestEnv(t *testing.T, score int, verdict ml.DeepfakeResult) *testEnv {
	t.Helper()
	logger := zap.NewNop().Sugar()

	store := storage.NewMemoryStore(logger)
	correlator, err := correlate.New(correlate.Config{
		Store:      store,
		Classifier: &scoringStub{score: score},
		Logger:     logger,
	})
	require.NoError(t, err)

	hub := NewHub(context.Background(), logger)
	go hub.Start()
	t.Cleanup(hub.Stop)
	correlator.AddSink(hub)

	cfg := &config.Config{}
	cfg.API.Port = 8090
	cfg.API.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.API.RateLimit.RequestsPerSecond = 1000
	cfg.API.RateLimit.Burst = 1000

	a := NewAPI(store, correlator, &verdictStub{verdict: verdict}, hub, cfg, logger)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	return &testEnv{api: a, store: store, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzePhishing_Escalates(t *testing.T) {
	env := newTestEnv(t, 95, ml.DeepfakeResult{})

	rec := env.do(t, "POST", "/api/phishing/analyze", map[string]string{
		"content": "URGENT verify your account",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome correlate.PhishingOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&outcome))
	assert.True(t, outcome.Escalated)
	assert.Equal(t, 95, outcome.Analysis.Score)
	assert.Len(t, env.store.ListAlerts(0, 0, false), 1)
}

func TestAnalyzePhishing_BadRequests(t *testing.T) {
	env := newTestEnv(t, 95, ml.DeepfakeResult{})

	rec := env.do(t, "POST", "/api/phishing/analyze", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("POST", "/api/phishing/analyze", bytes.NewBufferString("{not json"))
	out := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(out.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Error)
}

func TestAnalyzeDeepfake(t *testing.T) {
	env := newTestEnv(t, 0, ml.DeepfakeResult{
		IsDeepfake: true, Confidence: 0.92, ProcessingTimeMs: 700,
		Anomalies: []string{"inconsistent eye reflections"},
	})

	rec := env.do(t, "POST", "/api/deepfake/analyze", map[string]interface{}{
		"file_name":       "statement.mp4",
		"file_type":       "video/mp4",
		"file_size_bytes": 1024,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome correlate.DeepfakeOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&outcome))
	assert.True(t, outcome.Escalated)
	assert.True(t, outcome.Analysis.IsDeepfake)
	assert.InDelta(t, 0.92, outcome.Analysis.Confidence, 1e-9)

	// Missing file name
	rec = env.do(t, "POST", "/api/deepfake/analyze", map[string]interface{}{"file_type": "video/mp4"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAttack(t *testing.T) {
	env := newTestEnv(t, 0, ml.DeepfakeResult{})

	rec := env.do(t, "POST", "/api/honeypot/attack", map[string]interface{}{
		"service":     "ssh",
		"source_ip":   "203.0.113.9",
		"attack_type": "brute_force",
		"severity":    "high",
		"port":        22,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var outcome correlate.AttackOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&outcome))
	assert.True(t, outcome.AlertCreated)
	assert.Equal(t, core.ServiceSSH, outcome.Attack.Service)

	for _, bad := range []map[string]interface{}{
		{"service": "smtp", "source_ip": "1.2.3.4", "attack_type": "x", "severity": "low"},
		{"service": "ssh", "source_ip": "not-an-ip", "attack_type": "x", "severity": "low"},
		{"service": "ssh", "source_ip": "1.2.3.4", "attack_type": "x", "severity": "extreme"},
		{"service": "ssh", "source_ip": "1.2.3.4", "severity": "low"},
	} {
		rec := env.do(t, "POST", "/api/honeypot/attack", bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload: %v", bad)
	}
}

func TestGetStatsReflectsSubmissions(t *testing.T) {
	env := newTestEnv(t, 95, ml.DeepfakeResult{})

	env.do(t, "POST", "/api/phishing/analyze", map[string]string{"content": "verify now"})
	env.do(t, "POST", "/api/honeypot/attack", map[string]interface{}{
		"service": "http", "source_ip": "198.51.100.2",
		"attack_type": "sql_injection", "severity": "medium", "port": 80,
	})

	rec := env.do(t, "GET", "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats core.SystemStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.PhishingBlocked)
	assert.Equal(t, int64(1), stats.HoneypotHits)
	assert.Equal(t, int64(1), stats.ActiveThreats)
}

func TestAlertEndpoints(t *testing.T) {
	env := newTestEnv(t, 95, ml.DeepfakeResult{})
	env.do(t, "POST", "/api/phishing/analyze", map[string]string{"content": "one"})
	env.do(t, "POST", "/api/phishing/analyze", map[string]string{"content": "two"})

	rec := env.do(t, "GET", "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []*core.Alert
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&alerts))
	require.Len(t, alerts, 2)

	rec = env.do(t, "GET", "/api/alerts/counts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var counts core.AlertCounts
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	assert.Equal(t, int64(2), counts.Total)
	assert.Equal(t, int64(2), counts.Unread)

	rec = env.do(t, "POST", fmt.Sprintf("/api/alerts/%d/read", alerts[0].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var read core.Alert
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&read))
	assert.True(t, read.IsRead)

	// Unknown id is a 404
	rec = env.do(t, "POST", "/api/alerts/99999/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "POST", "/api/alerts/read-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), env.store.AlertCounts().Unread)
}

func TestHoneypotQueryEndpoints(t *testing.T) {
	env := newTestEnv(t, 0, ml.DeepfakeResult{})

	for _, svc := range []string{"ssh", "http", "ssh"} {
		env.do(t, "POST", "/api/honeypot/attack", map[string]interface{}{
			"service": svc, "source_ip": "203.0.113.50",
			"attack_type": "port_scan", "severity": "low", "port": 22,
		})
	}

	rec := env.do(t, "GET", "/api/honeypot/logs?service=ssh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var attacks []*core.HoneypotAttack
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&attacks))
	assert.Len(t, attacks, 2)

	rec = env.do(t, "GET", "/api/honeypot/logs?service=telnet", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "GET", "/api/honeypot/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats core.HoneypotStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(3), stats.TotalAttacks)
	assert.Equal(t, int64(2), stats.ByService["ssh"])
}

func TestGetThreats(t *testing.T) {
	env := newTestEnv(t, 95, ml.DeepfakeResult{})
	env.do(t, "POST", "/api/phishing/analyze", map[string]string{"content": "verify"})

	rec := env.do(t, "GET", "/api/threats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var threats []*core.Threat
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&threats))
	require.Len(t, threats, 1)
	assert.Equal(t, "phishing", threats[0].Type)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, 0, ml.DeepfakeResult{})

	rec := env.do(t, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, 0, ml.DeepfakeResult{})
	env.api.config.API.RateLimit.RequestsPerSecond = 1
	env.api.config.API.RateLimit.Burst = 1

	first := env.do(t, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := env.do(t, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORSMiddleware(t *testing.T) {
	env := newTestEnv(t, 0, ml.DeepfakeResult{})

	req := httptest.NewRequest("OPTIONS", "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origins get no allow header
	req = httptest.NewRequest("OPTIONS", "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
