// Package transport provides the HTTP plumbing shared by every WorkNest
// service client: request IDs, structured request logging, and metrics.
package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-Id"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worknest_client_requests_total",
		Help: "Requests issued to WorkNest backend services.",
	}, []string{"service", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worknest_client_request_duration_seconds",
		Help:    "Round-trip duration of WorkNest backend requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method"})
)

// RoundTripper decorates an http.RoundTripper with a request ID header,
// per-request debug logging, and prometheus instrumentation. Service names
// the backend ("identity", "project", "storage") for metric labels.
type RoundTripper struct {
	Service string
	Base    http.RoundTripper
	Logger  zerolog.Logger
}

// New builds an http.Client wrapping base with the instrumented round tripper.
// A nil base falls back to http.DefaultTransport.
func New(service string, base http.RoundTripper, logger zerolog.Logger, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &RoundTripper{
			Service: service,
			Base:    base,
			Logger:  logger,
		},
	}
}

// RoundTrip implements http.RoundTripper.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.New().String())
	}

	start := time.Now()
	resp, err := rt.Base.RoundTrip(req)
	elapsed := time.Since(start)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	requestsTotal.WithLabelValues(rt.Service, req.Method, status).Inc()
	requestDuration.WithLabelValues(rt.Service, req.Method).Observe(elapsed.Seconds())

	evt := rt.Logger.Debug().
		Str("service", rt.Service).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", elapsed)
	if err != nil {
		evt.Err(err).Msg("request failed")
		return nil, err
	}
	evt.Int("status", resp.StatusCode).Msg("request")
	return resp, nil
}
