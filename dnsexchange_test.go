// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLogContext returns a dnsExchangeLogContext wired to the given
// logger with fixed metadata.
func newTestLogContext(logger SLogger) *dnsExchangeLogContext {
	return &dnsExchangeLogContext{
		Engine:        "stub",
		ErrClassifier: DefaultErrClassifier,
		Hostname:      "example.com",
		LocalAddr:     "127.0.0.1:54321",
		Logger:        logger,
		RemoteAddr:    "8.8.8.8:53",
		TimeNow:       time.Now,
	}
}

// logStart and logDone bracket the exchange with engine and hostname.
func TestDNSExchangeLogContextSpan(t *testing.T) {
	logger, records := newCapturingLogger()
	lc := newTestLogContext(logger)

	t0 := time.Now()
	deadline := t0.Add(5 * time.Second)
	lc.logStart(t0, deadline)
	lc.logDone(t0, deadline, nil, ErrDNSTransactionIDMismatch)

	require.Equal(t, []string{"dnsExchangeStart", "dnsExchangeDone"}, messages(*records))
	for _, record := range *records {
		attrs := recordAttrs(record)
		assert.Equal(t, "stub", attrs["dnsEngine"].String())
		assert.Equal(t, "example.com", attrs["dnsHostname"].String())
		assert.Equal(t, "udp", attrs["protocol"].String())
	}
	gotErr, _ := recordAttrs((*records)[1])["err"].Any().(error)
	assert.Equal(t, ErrDNSTransactionIDMismatch, gotErr)
}

// logDone includes the resolved addresses.
func TestDNSExchangeLogContextLogDoneAddrs(t *testing.T) {
	logger, records := newCapturingLogger()
	lc := newTestLogContext(logger)

	lc.logDone(time.Now(), time.Time{}, []string{"93.184.216.34"}, nil)

	require.Len(t, *records, 1)
	attrs := recordAttrs((*records)[0])
	assert.Equal(t, []string{"93.184.216.34"}, attrs["dnsAddrs"].Any())
	assert.Equal(t, "", attrs["errClass"].String())
}

// The response observer reports the query saved by the query observer.
func TestDNSExchangeLogContextObservers(t *testing.T) {
	logger, records := newCapturingLogger()
	lc := newTestLogContext(logger)

	var rqr []byte
	t0 := time.Now()
	rawQuery := []byte{0xab, 0xcd, 0x01, 0x00}
	rawResp := []byte{0xab, 0xcd, 0x81, 0x80}
	lc.makeQueryObserver(t0, &rqr)(rawQuery)
	lc.makeResponseObserver(t0, &rqr)(rawResp)

	require.Equal(t, []string{"dnsQuery", "dnsResponse"}, messages(*records))
	assert.Equal(t, rawQuery, rqr)

	var gotQuery, gotResp []byte
	(*records)[1].Attrs(func(attr slog.Attr) bool {
		switch attr.Key {
		case "dnsRawQuery":
			gotQuery, _ = attr.Value.Any().([]byte)
		case "dnsRawResponse":
			gotResp, _ = attr.Value.Any().([]byte)
		}
		return true
	})
	assert.Equal(t, rawQuery, gotQuery)
	assert.Equal(t, rawResp, gotResp)
}
