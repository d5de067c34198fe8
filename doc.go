// SPDX-License-Identifier: GPL-3.0-or-later

// Package stubfetch fetches a URL over plain HTTP/1.1, resolving the host
// with a minimal DNS stub resolver speaking the wire protocol directly.
//
// # Fetching
//
// [FetchFunc] is the entry point: it parses the URL with [ParseURL],
// connects a [*ClientSession], performs a single request/response exchange,
// and closes the session. The session follows a linear state machine
// (Unconnected, Connected, RequestSent, Complete, or Failed) and each
// method fails with [ErrSessionState] when invoked out of order.
//
// Requests are serialized by [HTTPRequest.Serialize] and always carry
// "Connection: Close", so the response is read until the peer closes the
// stream and then split by [ParseHTTPResponse]. Chunked encoding,
// redirects, keep-alive, and TLS are not supported.
//
// # Resolving
//
// [ResolveFunc] binds a fresh [*DatagramChannel] per lookup, sends one A
// query built by [NewDNSQuery] to the configured resolver, and decodes the
// first reply with [DecodeDNSResponse]. There is no retry and no fallback.
// [ParseDNSResponse] is the fixed-offset decoder for responses whose
// answer immediately follows the question.
//
// [CrossCheckFunc] compares the stub answer with the one obtained through
// a full-fledged DNS implementation and is meant for diagnostics.
//
// # Errors
//
// Failures fall into three families: [*DNSResolveError] for resolution,
// [*StreamConnectionError] for connecting the stream, and errors wrapping
// [ErrResponseParse] for unusable responses. Transport failures are
// reported as [*BindError], [*ConnectError], [*WriteError], or [*ReadError].
// A blocking operation abandoned because its context is done yields an
// error wrapping [ErrTimeout].
//
// # Composition
//
// Operations implement [Func] and compose with [Compose2] and [Compose4];
// [ConstFunc] lifts a value into a [Func]. The resolver used by a session is
// itself a [Func], so [FuncAdapter] can plug in an alternative resolver.
//
// # Observability
//
// All operations log through [SLogger] (compatible with [log/slog]) and
// discard everything by default. Spans are emitted as *Start/*Done pairs at
// [slog.LevelInfo] carrying localAddr, remoteAddr, protocol, t0, t, err,
// and errClass; per-I/O events use [slog.LevelDebug]. The raw DNS messages
// are logged as dnsQuery and dnsResponse events. Use [NewSpanID] with
// [*slog.Logger.With] to correlate the events of a fetch.
//
// Resolution and fetch outcomes are counted by a [MetricsRecorder]; see
// [NewPrometheusMetrics] for a Prometheus-backed one.
//
// # Timeouts
//
// Operations never modify their context. The caller bounds them with
// [context.WithTimeout] or cancels them with [signal.NotifyContext].
package stubfetch
