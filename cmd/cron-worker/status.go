package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rxexchange-backend/api/responses"
	"github.com/angelmondragon/rxexchange-backend/internal/cron"
)

type sweepReporter interface {
	LastResult() (cron.SweepResult, bool)
}

// newStatusRouter exposes metrics and the outcome of the most recent sweep.
func newStatusRouter(sweeps sweepReporter) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		result, ok := sweeps.LastResult()
		if !ok {
			responses.WriteSuccess(w, map[string]any{"last_sweep": nil})
			return
		}
		responses.WriteSuccess(w, map[string]any{"last_sweep": result})
	})
	return r
}
