// Package metrics exposes Prometheus collectors for the sync pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncCodesTotal         *prometheus.CounterVec
	syncActiveWorkers      prometheus.Gauge
	syncRunDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		syncCodesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitscout_sync_codes_total",
				Help: "Total number of codes processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		syncActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "unitscout_sync_active_workers",
				Help: "Number of workers currently processing a code.",
			},
		)

		syncRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "unitscout_sync_run_duration_seconds",
				Help:    "Histogram of whole-run wall clock durations.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is canceled. It blocks, so
// callers run it in a goroutine; a closed listener is not an error.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ObserveCode increments the per-outcome code counter.
func ObserveCode(outcome string) {
	syncCodesTotal.WithLabelValues(outcome).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	syncActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	syncActiveWorkers.Dec()
}

// ObserveRunDuration records the duration of a completed run.
func ObserveRunDuration(d time.Duration) {
	syncRunDurationSeconds.Observe(d.Seconds())
}
