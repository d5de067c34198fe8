// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/bassosimone/dnscodec"
	"github.com/bassosimone/minest"
	"github.com/bassosimone/safeconn"
	"github.com/miekg/dns"
)

// CrossCheck compares the stub resolver answer with the answers
// obtained using a full-fledged DNS message parser.
type CrossCheck struct {
	// Hostname is the name that was resolved.
	Hostname string

	// StubAddr is the stub resolver answer, valid when StubErr is nil.
	StubAddr netip.Addr

	// StubErr is the stub resolver error.
	StubErr error

	// LibraryAddrs contains all the A records of the library lookup.
	LibraryAddrs []netip.Addr

	// LibraryErr is the library lookup error.
	LibraryErr error
}

// Agree returns whether both lookups succeeded and the stub
// answer is among the library answers.
func (cc *CrossCheck) Agree() bool {
	return cc.StubErr == nil && cc.LibraryErr == nil && slices.Contains(cc.LibraryAddrs, cc.StubAddr)
}

// NewCrossCheckFunc returns a new [*CrossCheckFunc] querying [Config.ResolverEndpoint].
//
// The library lookup uses its own connected UDP socket built by composing
// [NewEndpointFunc], [*ConnectFunc], [*ObserveConnFunc], and [*CancelWatchFunc].
func NewCrossCheckFunc(cfg *Config, logger SLogger) *CrossCheckFunc {
	return &CrossCheckFunc{
		Dial: Compose4(
			NewEndpointFunc(cfg.ResolverEndpoint),
			Func[netip.AddrPort, net.Conn](NewConnectFunc(cfg, "udp", logger)),
			Func[net.Conn, net.Conn](NewObserveConnFunc(cfg, logger)),
			Func[net.Conn, net.Conn](NewCancelWatchFunc()),
		),
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Stub:          NewResolveFunc(cfg, logger),
		TimeNow:       cfg.TimeNow,
	}
}

// CrossCheckFunc resolves a name with the stub resolver and, independently,
// with the [minest] DNS-over-UDP transport and [dnscodec] parser.
//
// This is a diagnostic: the library answer never replaces the stub answer.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type CrossCheckFunc struct {
	// Dial returns a UDP socket connected to the resolver.
	Dial Func[Unit, net.Conn]

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	Logger SLogger

	// Stub is the stub resolver.
	Stub Func[string, netip.Addr]

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

var _ Func[string, *CrossCheck] = &CrossCheckFunc{}

// Call runs both lookups sequentially. It never fails: the errors of
// each lookup are stored in the returned [*CrossCheck].
func (op *CrossCheckFunc) Call(ctx context.Context, hostname string) (*CrossCheck, error) {
	cc := &CrossCheck{Hostname: hostname}
	cc.StubAddr, cc.StubErr = op.Stub.Call(ctx, hostname)
	cc.LibraryAddrs, cc.LibraryErr = op.lookup(ctx, hostname)
	return cc, nil
}

func (op *CrossCheckFunc) lookup(ctx context.Context, hostname string) ([]netip.Addr, error) {
	// 1. get a connected socket
	conn, err := op.Dial.Call(ctx, Unit{})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// 2. create the log context
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	var rqr []byte
	lc := &dnsExchangeLogContext{
		Engine:        "minest",
		ErrClassifier: op.ErrClassifier,
		Hostname:      hostname,
		LocalAddr:     safeconn.LocalAddr(conn),
		Logger:        op.Logger,
		RemoteAddr:    safeconn.RemoteAddr(conn),
		TimeNow:       op.TimeNow,
	}

	// 3. create a transport using the connection we already have
	txp := minest.NewDNSOverUDPTransport(dnsUnusedDialer{}, netip.AddrPortFrom(netip.IPv4Unspecified(), 0))
	txp.ObserveRawQuery = lc.makeQueryObserver(t0, &rqr)
	txp.ObserveRawResponse = lc.makeResponseObserver(t0, &rqr)

	// 4. exchange and collect the A records
	lc.logStart(t0, deadline)
	var records []string
	resp, err := txp.ExchangeWithConn(ctx, conn, dnscodec.NewQuery(hostname, dns.TypeA))
	if err == nil {
		records, err = resp.RecordsA()
	}
	lc.logDone(t0, deadline, records, err)
	if err != nil {
		return nil, err
	}

	addrs := make([]netip.Addr, 0, len(records))
	for _, record := range records {
		if addr, err := netip.ParseAddr(record); err == nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}
