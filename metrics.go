// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives the outcome of resolutions and fetches.
//
// The outcome is a short label such as "ok", "txid_mismatch", or
// "connect_error" (see [OutcomeLabel]).
type MetricsRecorder interface {
	ObserveDNSResolution(outcome string, elapsed time.Duration)
	ObserveHTTPFetch(outcome string, elapsed time.Duration)
}

// DefaultMetricsRecorder returns a recorder that ignores everything.
func DefaultMetricsRecorder() MetricsRecorder {
	return discardMetrics{}
}

type discardMetrics struct{}

func (discardMetrics) ObserveDNSResolution(outcome string, elapsed time.Duration) {}

func (discardMetrics) ObserveHTTPFetch(outcome string, elapsed time.Duration) {}

// PrometheusMetrics is a [MetricsRecorder] exporting Prometheus collectors.
//
// Construct using [NewPrometheusMetrics].
type PrometheusMetrics struct {
	dnsTotal    *prometheus.CounterVec
	dnsLatency  *prometheus.HistogramVec
	httpTotal   *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

var _ MetricsRecorder = &PrometheusMetrics{}

// NewPrometheusMetrics creates the collectors and registers them with reg.
//
// This function panics if registration fails (e.g., when registering
// twice with the same registry), like [prometheus.MustRegister].
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		dnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stubfetch",
			Name:      "dns_resolutions_total",
			Help:      "Number of stub resolutions by outcome.",
		}, []string{"outcome"}),
		dnsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stubfetch",
			Name:      "dns_resolution_seconds",
			Help:      "Latency of stub resolutions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stubfetch",
			Name:      "http_fetches_total",
			Help:      "Number of HTTP round trips by outcome.",
		}, []string{"outcome"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stubfetch",
			Name:      "http_fetch_seconds",
			Help:      "Latency of HTTP round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.dnsTotal, m.dnsLatency, m.httpTotal, m.httpLatency)
	return m
}

// ObserveDNSResolution implements [MetricsRecorder].
func (m *PrometheusMetrics) ObserveDNSResolution(outcome string, elapsed time.Duration) {
	m.dnsTotal.WithLabelValues(outcome).Inc()
	m.dnsLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveHTTPFetch implements [MetricsRecorder].
func (m *PrometheusMetrics) ObserveHTTPFetch(outcome string, elapsed time.Duration) {
	m.httpTotal.WithLabelValues(outcome).Inc()
	m.httpLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// OutcomeLabel maps an error returned by this package to a metrics label.
//
// Order matters: timeouts and DNS failures are wrapped by transport errors.
func OutcomeLabel(err error) string {
	var (
		bindErr    *BindError
		connectErr *ConnectError
		streamErr  *StreamConnectionError
		writeErr   *WriteError
		readErr    *ReadError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrDNSTransactionIDMismatch):
		return "txid_mismatch"
	case errors.Is(err, ErrDNSNotARecord):
		return "not_a_record"
	case errors.Is(err, ErrDNSTruncatedResponse):
		return "truncated"
	case errors.Is(err, ErrDNSMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrDNSResponseCode):
		return "rcode"
	case errors.Is(err, ErrParseURL):
		return "url_error"
	case errors.Is(err, ErrResponseParse):
		return "parse_error"
	case errors.As(err, &bindErr):
		return "bind_error"
	case errors.As(err, &connectErr), errors.As(err, &streamErr):
		return "connect_error"
	case errors.As(err, &writeErr):
		return "write_error"
	case errors.As(err, &readErr):
		return "read_error"
	default:
		return "other"
	}
}
