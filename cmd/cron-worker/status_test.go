package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/rxexchange-backend/internal/cron"
)

type stubReporter struct {
	result cron.SweepResult
	ok     bool
}

func (s stubReporter) LastResult() (cron.SweepResult, bool) {
	return s.result, s.ok
}

func TestStatusBeforeFirstSweep(t *testing.T) {
	router := newStatusRouter(stubReporter{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/status", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body struct {
		Data struct {
			LastSweep *cron.SweepResult `json:"last_sweep"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.LastSweep != nil {
		t.Fatalf("expected no sweep yet, got %+v", body.Data.LastSweep)
	}
}

func TestStatusReportsLastSweep(t *testing.T) {
	finished := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	router := newStatusRouter(stubReporter{ok: true, result: cron.SweepResult{FinishedAt: finished, Examined: 3}})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/status", nil))

	var body struct {
		Data struct {
			LastSweep *cron.SweepResult `json:"last_sweep"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.LastSweep == nil || body.Data.LastSweep.Examined != 3 || !body.Data.LastSweep.FinishedAt.Equal(finished) {
		t.Fatalf("unexpected sweep payload %+v", body.Data.LastSweep)
	}
}

func TestStatusServesMetrics(t *testing.T) {
	router := newStatusRouter(stubReporter{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
