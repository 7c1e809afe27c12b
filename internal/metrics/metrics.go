// Package metrics holds the Prometheus collectors shared by every collector
// role and a tiny HTTP server exposing them for scraping.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequests counts upstream API calls per credential and HTTP status.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pewstats_api_requests_total",
		Help: "Total upstream API requests by credential and status",
	}, []string{"key_id", "status"})

	// APIRequestDuration observes upstream API call latency per credential.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pewstats_api_request_duration_seconds",
		Help:    "Upstream API request duration by credential",
		Buckets: prometheus.DefBuckets,
	}, []string{"key_id"})

	// QueueMessages counts broker messages handled per queue and outcome (ok, error).
	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pewstats_queue_messages_total",
		Help: "Broker messages handled by queue and outcome",
	}, []string{"queue", "outcome"})

	// HandlerDuration observes message handler latency per queue.
	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pewstats_handler_duration_seconds",
		Help:    "Message handler duration by queue",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"queue"})

	// WorkerErrors counts unhandled worker errors per role.
	WorkerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pewstats_worker_errors_total",
		Help: "Unhandled worker errors by role",
	}, []string{"role"})

	// DBOperationDuration observes store gateway operation latency.
	DBOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pewstats_db_operation_duration_seconds",
		Help:    "Database operation duration by operation name",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// MatchesDiscovered counts matches inserted by discovery sweeps.
	MatchesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pewstats_matches_discovered_total",
		Help: "Matches inserted by discovery sweeps",
	})
)

// ObserveDB times a store gateway operation. Use with defer:
//
//	defer metrics.ObserveDB("insert_match")()
func ObserveDB(operation string) func() {
	start := time.Now()
	return func() {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Serve exposes /metrics and /healthz on the given port until ctx is canceled.
func Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
