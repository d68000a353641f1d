package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/dot-verify-go/internal/store"
)

func newTestServer(t *testing.T, withDB bool) http.Handler {
	t.Helper()
	if !withDB {
		return NewServer(nil, 0).Routes()
	}
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewServer(db, 0).Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) EngineError {
	t.Helper()
	var e EngineError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	return e
}

func TestHealthEndpoint(t *testing.T) {
	w := do(t, newTestServer(t, false), "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthCheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, HealthStatusDegraded, resp.Status)
	assert.Equal(t, HealthStatusHealthy, resp.Checks["scenarios"].Status)
	assert.NotEmpty(t, resp.EngineVersion)

	w = do(t, newTestServer(t, true), "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, HealthStatusHealthy, resp.Status)
}

func TestScenariosEndpoint(t *testing.T) {
	w := do(t, newTestServer(t, false), "GET", "/api/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ScenariosResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	ids := make([]string, 0, len(resp.Scenarios))
	for _, s := range resp.Scenarios {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "prebuff")
	assert.Contains(t, ids, "postbuff")
}

func TestVerifyPersistsRun(t *testing.T) {
	h := newTestServer(t, true)

	w := do(t, h, "POST", "/api/v1/verify", VerifyRequest{
		Scenario: "prebuff",
		Check:    "range",
		Samples:  []uint64{4500, 100, 9450},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp VerifyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.RunID)
	assert.Equal(t, []uint64{100}, resp.Report.Anomalies)
	assert.True(t, resp.Report.RangeChecked)

	w = do(t, h, "GET", "/api/v1/runs/"+resp.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run store.Run
	require.NoError(t, json.NewDecoder(w.Body).Decode(&run))
	assert.Equal(t, "prebuff", run.Scenario)
	assert.Equal(t, 1, run.AnomalyCount)
	assert.Equal(t, 3, run.SampleCount)

	w = do(t, h, "GET", "/api/v1/runs/"+resp.RunID+"/findings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page store.FindingsPage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, store.KindAnomaly, page.Findings[0].Kind)
	assert.Equal(t, uint64(100), page.Findings[0].Value)

	w = do(t, h, "GET", "/api/v1/runs?scenario=prebuff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list store.RunsList
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, 1, list.TotalCount)
}

func TestVerifySnapshotOverride(t *testing.T) {
	w := do(t, newTestServer(t, false), "POST", "/api/v1/verify", map[string]any{
		"scenario": "postbuff",
		"check":    "range",
		"samples":  []uint64{1100},
		"snapshot": map[string]uint64{"base": 1000, "crit_chance": 0, "crit_damage": 1000, "dhit_chance": 0},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp VerifyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.RunID)
	assert.Empty(t, resp.Report.Anomalies, "1000 * 1.1 is reachable")
	assert.Equal(t, uint64(1000), resp.Report.Snapshot.Base)
}

func TestVerifyErrors(t *testing.T) {
	h := newTestServer(t, false)

	tests := []struct {
		name    string
		body    any
		status  int
		errType string
	}{
		{"unknown scenario", VerifyRequest{Scenario: "midbuff", Samples: []uint64{1}}, http.StatusNotFound, ErrTypeScenarioNotFound},
		{"no samples", VerifyRequest{Scenario: "prebuff"}, http.StatusBadRequest, ErrTypeValidation},
		{"no scenario", VerifyRequest{Samples: []uint64{1}}, http.StatusBadRequest, ErrTypeValidation},
		{"bad check", VerifyRequest{Scenario: "prebuff", Check: "sideways", Samples: []uint64{1}}, http.StatusBadRequest, ErrTypeValidation},
		{"bad snapshot", map[string]any{"scenario": "prebuff", "samples": []uint64{1}, "snapshot": map[string]uint64{"base": 1, "crit_damage": 5}}, http.StatusBadRequest, ErrTypeValidation},
		{"not json", "samples please", http.StatusBadRequest, ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/v1/verify", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.errType, decodeError(t, w).Type)
			assert.Equal(t, tt.errType, w.Header().Get("X-Error-Type"))
		})
	}
}

func TestRunsRequireDB(t *testing.T) {
	w := do(t, newTestServer(t, false), "GET", "/api/v1/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrTypeServiceUnavailable, decodeError(t, w).Type)
}

func TestRunNotFound(t *testing.T) {
	h := newTestServer(t, true)

	w := do(t, h, "GET", "/api/v1/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrTypeNotFound, decodeError(t, w).Type)

	w = do(t, h, "GET", "/api/v1/runs/does-not-exist/findings", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorBuilder(t *testing.T) {
	e := NewError(ErrTypeBuffEvaluation, "boom").
		WithRequestID("req-1").
		WithContext("scenario", "postbuff").
		WithCause(assert.AnError).
		Build()

	assert.Equal(t, "boom", e.Error())
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "postbuff", e.Context["scenario"])
	assert.Equal(t, assert.AnError.Error(), e.Context["cause"])
	assert.NotEmpty(t, e.Timestamp)
	assert.Equal(t, CategoryVerify, GetErrorCategory(e.Type))
}
