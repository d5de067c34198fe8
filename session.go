// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// SessionState is the state of a [*ClientSession].
//
// The transitions are linear: Unconnected, Connected, RequestSent,
// Complete. Any failure moves to the terminal Failed state.
type SessionState int

const (
	SessionUnconnected SessionState = iota
	SessionConnected
	SessionRequestSent
	SessionComplete
	SessionFailed
)

// String implements [fmt.Stringer].
func (s SessionState) String() string {
	switch s {
	case SessionUnconnected:
		return "unconnected"
	case SessionConnected:
		return "connected"
	case SessionRequestSent:
		return "requestSent"
	case SessionComplete:
		return "complete"
	case SessionFailed:
		return "failed"
	default:
		return "SessionState(" + strconv.Itoa(int(s)) + ")"
	}
}

// NewClientSession returns a [*ClientSession] in the Unconnected state.
//
// The resolver maps non-literal hosts to addresses; pass a [*ResolveFunc]
// for the stub resolver or a [FuncAdapter] around another resolver.
func NewClientSession(cfg *Config, logger SLogger, resolver Func[string, netip.Addr]) *ClientSession {
	runtimex.Assert(resolver != nil)
	return &ClientSession{
		Dial:            NewConnectFunc(cfg, "tcp", logger),
		ErrClassifier:   cfg.ErrClassifier,
		Logger:          logger,
		MaxResponseSize: cfg.MaxHTTPResponseSize,
		Metrics:         cfg.Metrics,
		Observe:         NewObserveConnFunc(cfg, logger),
		Port:            cfg.HTTPPort,
		Resolver:        resolver,
		TimeNow:         cfg.TimeNow,
	}
}

// ClientSession performs a single HTTP/1.1 exchange over a stream it owns.
//
// Use Connect, then Send and Receive (or RoundTrip). Calling a method in
// the wrong state yields [ErrSessionState] without changing the state.
// The stream is released on reaching Complete or Failed, and by Close.
//
// While Send and Receive run, their context being done closes the stream,
// so that blocked I/O returns an error wrapping [ErrTimeout].
//
// A session is single-use and must not be used concurrently.
type ClientSession struct {
	// Dial opens the stream.
	//
	// Set by [NewClientSession] to a "tcp" [*ConnectFunc].
	Dial Func[netip.AddrPort, net.Conn]

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewClientSession] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewClientSession] to the user-provided logger.
	Logger SLogger

	// MaxResponseSize bounds the number of bytes read by Receive.
	//
	// Set by [NewClientSession] from [Config.MaxHTTPResponseSize].
	MaxResponseSize int64

	// Metrics records the outcome of the session.
	//
	// Set by [NewClientSession] from [Config.Metrics].
	Metrics MetricsRecorder

	// Observe wraps the stream after connecting.
	//
	// Set by [NewClientSession] to an [*ObserveConnFunc].
	Observe Func[net.Conn, net.Conn]

	// Port is used when the URL host has no explicit port.
	//
	// Set by [NewClientSession] from [Config.HTTPPort].
	Port uint16

	// Resolver maps hostnames to addresses.
	//
	// Set by [NewClientSession] to the user-provided resolver.
	Resolver Func[string, netip.Addr]

	// TimeNow is the function to get the current time.
	//
	// Set by [NewClientSession] from [Config.TimeNow].
	TimeNow func() time.Time

	conn  net.Conn
	err   error
	req   *HTTPRequest
	state SessionState
	t0    time.Time
	url   URL
}

// State returns the current state.
func (s *ClientSession) State() SessionState {
	return s.state
}

// Err returns the error that moved the session to Failed, if any.
func (s *ClientSession) Err() error {
	return s.err
}

// URL returns the URL passed to Connect.
func (s *ClientSession) URL() URL {
	return s.url
}

// Conn returns the stream, which is nil unless Connected or RequestSent.
func (s *ClientSession) Conn() net.Conn {
	return s.conn
}

// Connect resolves the URL host and opens the stream.
//
// A resolution failure is returned as is (usually a [*DNSResolveError]);
// a transport failure is returned as a [*StreamConnectionError].
func (s *ClientSession) Connect(ctx context.Context, u URL) error {
	if err := s.expect(SessionUnconnected); err != nil {
		return err
	}
	s.t0 = s.TimeNow()
	s.url = u

	endpoint, err := s.endpoint(ctx, u.Host)
	if err != nil {
		return s.fail(err)
	}

	conn, err := s.Dial.Call(ctx, endpoint)
	if err != nil {
		return s.fail(&StreamConnectionError{Address: endpoint.String(), Err: err})
	}
	if s.conn, err = s.Observe.Call(ctx, conn); err != nil {
		conn.Close()
		return s.fail(&StreamConnectionError{Address: endpoint.String(), Err: err})
	}

	s.state = SessionConnected
	return nil
}

// endpoint returns the address and port to connect to for host.
func (s *ClientSession) endpoint(ctx context.Context, host string) (netip.AddrPort, error) {
	name, port := host, s.Port
	if h, p, err := net.SplitHostPort(host); err == nil {
		value, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return netip.AddrPort{}, &StreamConnectionError{Address: host, Err: fmt.Errorf("invalid port %q", p)}
		}
		name, port = h, uint16(value)
	}

	if addr, err := netip.ParseAddr(name); err == nil {
		return netip.AddrPortFrom(addr.Unmap(), port), nil
	}
	addr, err := s.Resolver.Call(ctx, name)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return netip.AddrPortFrom(addr, port), nil
}

// Send writes the request on the stream.
//
// This method panics if req is nil.
func (s *ClientSession) Send(ctx context.Context, req *HTTPRequest) error {
	runtimex.Assert(req != nil)
	if err := s.expect(SessionConnected); err != nil {
		return err
	}
	s.req = req

	stop := closeOnDone(ctx, s.conn)
	defer stop()

	t0 := s.TimeNow()
	deadline, _ := ctx.Deadline()
	s.logRoundTripStart(t0, deadline)

	if err := WriteHTTPRequest(s.conn, req, s.url.Host, s.url.Path); err != nil {
		err = s.maybeTimeout(ctx, err)
		s.logRoundTripDone(t0, deadline, nil, err)
		return s.fail(err)
	}

	s.state = SessionRequestSent
	return nil
}

// Receive reads the stream until the peer closes it and parses the response.
//
// An empty or malformed response yields an error wrapping [ErrResponseParse];
// a transport failure yields a [*ReadError].
func (s *ClientSession) Receive(ctx context.Context) (*HTTPResponse, error) {
	if err := s.expect(SessionRequestSent); err != nil {
		return nil, err
	}

	stop := closeOnDone(ctx, s.conn)
	defer stop()

	t0 := s.TimeNow()
	deadline, _ := ctx.Deadline()

	reader := &httpStreamReader{
		body:     s.conn,
		errClass: s.ErrClassifier,
		laddr:    safeconn.LocalAddr(s.conn),
		logger:   s.Logger,
		protocol: safeconn.Network(s.conn),
		raddr:    safeconn.RemoteAddr(s.conn),
		timeNow:  s.TimeNow,
	}
	data, err := reader.readAll(s.MaxResponseSize)
	if err != nil {
		err = s.maybeTimeout(ctx, &ReadError{Err: err})
		s.logRoundTripDone(t0, deadline, nil, err)
		return nil, s.fail(err)
	}

	resp, ok := ParseHTTPResponse(string(data))
	if !ok {
		err := fmt.Errorf("%w: no header/body separator in %d bytes", ErrResponseParse, len(data))
		s.logRoundTripDone(t0, deadline, nil, err)
		return nil, s.fail(err)
	}

	s.logRoundTripDone(t0, deadline, resp, nil)
	s.state = SessionComplete
	s.release()
	s.Metrics.ObserveHTTPFetch(httpOutcomeLabel(nil), s.TimeNow().Sub(s.t0))
	return resp, nil
}

// RoundTrip is Send followed by Receive.
func (s *ClientSession) RoundTrip(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	if err := s.Send(ctx, req); err != nil {
		return nil, err
	}
	return s.Receive(ctx)
}

// Close releases the stream. It is safe to call in any state.
func (s *ClientSession) Close() error {
	return s.release()
}

func (s *ClientSession) release() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *ClientSession) expect(state SessionState) error {
	if s.state != state {
		return fmt.Errorf("%w: expected %s, got %s", ErrSessionState, state, s.state)
	}
	return nil
}

func (s *ClientSession) fail(err error) error {
	s.state = SessionFailed
	s.err = err
	s.release()
	s.Metrics.ObserveHTTPFetch(httpOutcomeLabel(err), s.TimeNow().Sub(s.t0))
	return err
}

// maybeTimeout marks err as a timeout when the context is done,
// since closeOnDone closing the stream is what caused it.
func (s *ClientSession) maybeTimeout(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	var (
		writeErr *WriteError
		readErr  *ReadError
	)
	timeout := fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	switch {
	case errors.As(err, &writeErr):
		return &WriteError{Err: timeout}
	case errors.As(err, &readErr):
		return &ReadError{Err: timeout}
	default:
		return timeout
	}
}

func (s *ClientSession) logRoundTripStart(t0, deadline time.Time) {
	s.Logger.Info(
		"httpRoundTripStart",
		slog.Time("deadline", deadline),
		slog.String("httpMethod", s.req.Method.String()),
		slog.Any("httpRequestHeaders", s.req.Headers),
		slog.String("httpUrl", s.url.Scheme+"://"+s.url.Host+s.url.Path),
		slog.String("localAddr", safeconn.LocalAddr(s.conn)),
		slog.String("protocol", safeconn.Network(s.conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(s.conn)),
		slog.Time("t", t0),
	)
}

func (s *ClientSession) logRoundTripDone(t0, deadline time.Time, resp *HTTPResponse, err error) {
	var (
		statusLine string
		headers    map[string]string
	)
	if resp != nil {
		statusLine = resp.StatusLine
		headers = resp.Headers
	}
	s.Logger.Info(
		"httpRoundTripDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", s.ErrClassifier.Classify(err)),
		slog.String("httpMethod", s.req.Method.String()),
		slog.Any("httpRequestHeaders", s.req.Headers),
		slog.Any("httpResponseHeaders", headers),
		slog.String("httpResponseStatusLine", statusLine),
		slog.String("httpUrl", s.url.Scheme+"://"+s.url.Host+s.url.Path),
		slog.String("localAddr", safeconn.LocalAddr(s.conn)),
		slog.String("protocol", safeconn.Network(s.conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(s.conn)),
		slog.Time("t0", t0),
		slog.Time("t", s.TimeNow()),
	)
}

// httpOutcomeLabel is like [OutcomeLabel] but reports any resolution
// failure as "dns_error", since its cause is accounted for separately.
func httpOutcomeLabel(err error) string {
	var dnsErr *DNSResolveError
	if errors.As(err, &dnsErr) {
		return "dns_error"
	}
	return OutcomeLabel(err)
}

// NewClientSessionFunc returns a new [*ClientSessionFunc].
func NewClientSessionFunc(cfg *Config, logger SLogger, resolver Func[string, netip.Addr]) *ClientSessionFunc {
	return &ClientSessionFunc{
		Config:   cfg,
		Logger:   logger,
		Resolver: resolver,
	}
}

// ClientSessionFunc creates a [*ClientSession] and connects it to a [URL].
//
// On success the caller owns the session and must Close it.
type ClientSessionFunc struct {
	// Config is the configuration used for each session.
	Config *Config

	// Logger is the [SLogger] to use.
	Logger SLogger

	// Resolver maps hostnames to addresses.
	Resolver Func[string, netip.Addr]
}

var _ Func[URL, *ClientSession] = &ClientSessionFunc{}

// Call implements [Func].
func (op *ClientSessionFunc) Call(ctx context.Context, u URL) (*ClientSession, error) {
	session := NewClientSession(op.Config, op.Logger, op.Resolver)
	if err := session.Connect(ctx, u); err != nil {
		return nil, err
	}
	return session, nil
}
