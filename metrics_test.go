// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// OutcomeLabel maps the package errors to stable labels.
func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		// err is the error to classify.
		err error

		// want is the expected label.
		want string
	}{
		{err: nil, want: "ok"},
		{err: &DNSResolveError{Err: &ReadError{Err: fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded)}}, want: "timeout"},
		{err: &DNSResolveError{Err: ErrDNSTransactionIDMismatch}, want: "txid_mismatch"},
		{err: ErrDNSNotARecord, want: "not_a_record"},
		{err: ErrDNSTruncatedResponse, want: "truncated"},
		{err: ErrDNSMalformedResponse, want: "malformed"},
		{err: fmt.Errorf("%w: 2", ErrDNSResponseCode), want: "rcode"},
		{err: ErrParseURL, want: "url_error"},
		{err: fmt.Errorf("%w: empty", ErrResponseParse), want: "parse_error"},
		{err: &BindError{Err: errors.New("in use")}, want: "bind_error"},
		{err: &ConnectError{Err: errors.New("ipv6")}, want: "connect_error"},
		{err: &StreamConnectionError{Err: errors.New("refused")}, want: "connect_error"},
		{err: &WriteError{Err: errors.New("reset")}, want: "write_error"},
		{err: &ReadError{Err: errors.New("reset")}, want: "read_error"},
		{err: errors.New("mystery"), want: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeLabel(tt.err))
		})
	}
}

// A resolution failure counts once as its own cause and once as dns_error.
func TestHTTPOutcomeLabel(t *testing.T) {
	err := &DNSResolveError{Err: ErrDNSNotARecord}
	assert.Equal(t, "not_a_record", OutcomeLabel(err))
	assert.Equal(t, "dns_error", httpOutcomeLabel(err))
	assert.Equal(t, "ok", httpOutcomeLabel(nil))
}

// PrometheusMetrics counts observations per outcome.
func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.ObserveDNSResolution("ok", 10*time.Millisecond)
	m.ObserveDNSResolution("ok", 20*time.Millisecond)
	m.ObserveDNSResolution("timeout", time.Second)
	m.ObserveHTTPFetch("parse_error", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dnsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dnsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpTotal.WithLabelValues("parse_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.dnsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpLatency))

	assert.Panics(t, func() { NewPrometheusMetrics(reg) })
}

// The default recorder accepts observations.
func TestDefaultMetricsRecorder(t *testing.T) {
	m := DefaultMetricsRecorder()
	m.ObserveDNSResolution("ok", time.Millisecond)
	m.ObserveHTTPFetch("ok", time.Millisecond)
}
