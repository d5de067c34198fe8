// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// NewResolveFunc returns a new [*ResolveFunc].
//
// The cfg argument contains the common configuration.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewResolveFunc(cfg *Config, logger SLogger) *ResolveFunc {
	return &ResolveFunc{
		Bind:               NewBindFunc(cfg, logger),
		Endpoint:           cfg.ResolverEndpoint,
		ErrClassifier:      cfg.ErrClassifier,
		Logger:             logger,
		MaxDNSResponseSize: cfg.MaxDNSResponseSize,
		Metrics:            cfg.Metrics,
		NewTransactionID:   cfg.NewTransactionID,
		TimeNow:            cfg.TimeNow,
	}
}

// ResolveFunc is a stub resolver mapping a hostname to an IPv4 address.
//
// Each call binds a fresh [*DatagramChannel], sends a single A query to
// Endpoint, waits for exactly one reply, and closes the channel. There is
// no retry and no fallback: any failure is returned as a [*DNSResolveError]
// whose Err field tells what went wrong. IPv4 literals are returned as-is.
//
// The wait for the reply is bounded only by the context.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ResolveFunc struct {
	// Bind creates the channel for each resolution.
	//
	// Set by [NewResolveFunc] to a [*BindFunc] built from the [*Config].
	Bind Func[Unit, *DatagramChannel]

	// Endpoint is the upstream resolver.
	//
	// Set by [NewResolveFunc] from [Config.ResolverEndpoint].
	Endpoint netip.AddrPort

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewResolveFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewResolveFunc] to the user-provided logger.
	Logger SLogger

	// MaxDNSResponseSize is the receive buffer size.
	//
	// Set by [NewResolveFunc] from [Config.MaxDNSResponseSize].
	MaxDNSResponseSize int

	// Metrics records the outcome of each call.
	//
	// Set by [NewResolveFunc] from [Config.Metrics].
	Metrics MetricsRecorder

	// NewTransactionID generates the query ID.
	//
	// Set by [NewResolveFunc] from [Config.NewTransactionID].
	NewTransactionID func() uint16

	// TimeNow is the function to get the current time.
	//
	// Set by [NewResolveFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[string, netip.Addr] = &ResolveFunc{}

// Call resolves hostname to an IPv4 address.
func (op *ResolveFunc) Call(ctx context.Context, hostname string) (netip.Addr, error) {
	t0 := op.TimeNow()
	addr, err := op.resolve(ctx, hostname)
	if err != nil {
		err = &DNSResolveError{Hostname: hostname, Err: err}
	}
	op.Metrics.ObserveDNSResolution(OutcomeLabel(err), op.TimeNow().Sub(t0))
	return addr, err
}

func (op *ResolveFunc) resolve(ctx context.Context, hostname string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(hostname); err == nil {
		if !addr.Unmap().Is4() {
			return netip.Addr{}, ErrDNSNotARecord
		}
		return addr.Unmap(), nil
	}
	if err := validateHostname(hostname); err != nil {
		return netip.Addr{}, err
	}

	// 1. bind and connect to the resolver
	channel, err := op.Bind.Call(ctx, Unit{})
	if err != nil {
		return netip.Addr{}, err
	}
	defer channel.Close()
	if err := channel.Connect(op.Endpoint); err != nil {
		return netip.Addr{}, err
	}

	// 2. create the log context
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	var rqr []byte
	lc := &dnsExchangeLogContext{
		Engine:        "stub",
		ErrClassifier: op.ErrClassifier,
		Hostname:      hostname,
		LocalAddr:     addrString(channel.LocalAddr()),
		Logger:        op.Logger,
		RemoteAddr:    op.Endpoint.String(),
		TimeNow:       op.TimeNow,
	}
	lc.logStart(t0, deadline)

	// 3. exchange and decode
	addr, err := op.exchange(ctx, channel, hostname, lc.makeQueryObserver(t0, &rqr), lc.makeResponseObserver(t0, &rqr))

	var addrs []string
	if err == nil {
		addrs = append(addrs, addr.String())
	}
	lc.logDone(t0, deadline, addrs, err)
	return addr, err
}

func (op *ResolveFunc) exchange(ctx context.Context, channel *DatagramChannel,
	hostname string, observeQuery, observeResponse func([]byte)) (netip.Addr, error) {
	query := NewDNSQuery(hostname, op.NewTransactionID())
	observeQuery(query.Message)
	if err := channel.Send(ctx, query.Message); err != nil {
		return netip.Addr{}, err
	}

	rawResp, err := channel.Receive(ctx, op.MaxDNSResponseSize)
	if err != nil {
		return netip.Addr{}, err
	}
	observeResponse(rawResp)

	return DecodeDNSResponse(rawResp, query.TransactionID)
}

// errInvalidHostname is returned for names that cannot be encoded.
var errInvalidHostname = errors.New("invalid hostname")

// validateHostname enforces the label constraints [EncodeDNSQuery] assumes.
func validateHostname(hostname string) error {
	name := strings.TrimSuffix(hostname, ".")
	if name == "" || len(name) > 253 {
		return fmt.Errorf("%w: %q", errInvalidHostname, hostname)
	}
	for label := range strings.SplitSeq(name, ".") {
		if len(label) < 1 || len(label) > 63 {
			return fmt.Errorf("%w: %q", errInvalidHostname, hostname)
		}
	}
	return nil
}
