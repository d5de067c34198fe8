// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"log/slog"
	"time"
)

// dnsExchangeLogContext holds the logging state of a DNS exchange.
//
// Shared by [*ResolveFunc], which emits the raw messages itself, and by
// [*CrossCheckFunc], which plugs the observers into a library transport.
type dnsExchangeLogContext struct {
	// Engine is the resolver engine ("stub" or "minest").
	Engine string

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Hostname is the name being resolved.
	Hostname string

	// LocalAddr is the local address of the socket.
	LocalAddr string

	// Logger is the SLogger to use.
	Logger SLogger

	// RemoteAddr is the resolver address.
	RemoteAddr string

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

func (lc *dnsExchangeLogContext) logStart(t0 time.Time, deadline time.Time) {
	lc.Logger.Info(
		"dnsExchangeStart",
		slog.Time("deadline", deadline),
		slog.String("dnsEngine", lc.Engine),
		slog.String("dnsHostname", lc.Hostname),
		slog.String("localAddr", lc.LocalAddr),
		slog.String("protocol", "udp"),
		slog.String("remoteAddr", lc.RemoteAddr),
		slog.Time("t", t0),
	)
}

func (lc *dnsExchangeLogContext) logDone(t0 time.Time, deadline time.Time, addrs []string, err error) {
	lc.Logger.Info(
		"dnsExchangeDone",
		slog.Time("deadline", deadline),
		slog.Any("dnsAddrs", addrs),
		slog.String("dnsEngine", lc.Engine),
		slog.String("dnsHostname", lc.Hostname),
		slog.Any("err", err),
		slog.String("errClass", lc.ErrClassifier.Classify(err)),
		slog.String("localAddr", lc.LocalAddr),
		slog.String("protocol", "udp"),
		slog.String("remoteAddr", lc.RemoteAddr),
		slog.Time("t0", t0),
		slog.Time("t", lc.TimeNow()),
	)
}

// makeQueryObserver returns a function logging the raw query.
//
// The query is saved into rqr so the response event can include it.
func (lc *dnsExchangeLogContext) makeQueryObserver(t0 time.Time, rqr *[]byte) func([]byte) {
	return func(rawQuery []byte) {
		lc.Logger.Info(
			"dnsQuery",
			slog.Any("dnsRawQuery", rawQuery),
			slog.String("localAddr", lc.LocalAddr),
			slog.String("protocol", "udp"),
			slog.String("remoteAddr", lc.RemoteAddr),
			slog.Time("t", t0),
		)
		*rqr = rawQuery
	}
}

// makeResponseObserver returns a function logging the raw response
// along with the query previously saved by makeQueryObserver.
func (lc *dnsExchangeLogContext) makeResponseObserver(t0 time.Time, rqr *[]byte) func([]byte) {
	return func(rawResp []byte) {
		lc.Logger.Info(
			"dnsResponse",
			slog.Any("dnsRawQuery", *rqr),
			slog.Any("dnsRawResponse", rawResp),
			slog.String("localAddr", lc.LocalAddr),
			slog.String("protocol", "udp"),
			slog.String("remoteAddr", lc.RemoteAddr),
			slog.Time("t0", t0),
			slog.Time("t", lc.TimeNow()),
		)
	}
}
