// Package telemetry exposes Prometheus metrics for the requests a benchmark issues.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwiater/chatbench/internal/logging"
)

// Request kinds used as the "kind" label.
const (
	KindModels     = "models"
	KindCompletion = "completion"
	KindStream     = "stream"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics holds the benchmark collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// New creates and registers the chatbench collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbench_requests_total",
			Help: "Requests issued against the chat-completion API.",
		}, []string{"model", "kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatbench_request_duration_seconds",
			Help:    "End-to-end request duration.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"model", "kind"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatbench_requests_in_flight",
			Help: "Requests dispatched and not yet completed.",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Begin marks one request in flight and returns the function that completes it.
func (m *Metrics) Begin(model, kind string) func(err error) {
	m.inFlight.Inc()
	start := time.Now()
	return func(err error) {
		m.inFlight.Dec()
		m.Observe(model, kind, time.Since(start), err)
	}
}

// Observe records one finished request.
func (m *Metrics) Observe(model, kind string, d time.Duration, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.requests.WithLabelValues(model, kind, outcome).Inc()
	m.duration.WithLabelValues(model, kind).Observe(d.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("[TELEMETRY] serving metrics on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
