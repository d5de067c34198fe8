// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"
)

// PacketListener abstracts the [*net.ListenConfig] behavior.
//
// By making [*BindFunc] depend on an abstract implementation we
// allow for unit testing and for alternative packet sources.
type PacketListener interface {
	ListenPacket(ctx context.Context, network, address string) (net.PacketConn, error)
}

// NewBindFunc returns a new [*BindFunc].
//
// The cfg argument contains the common configuration.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewBindFunc(cfg *Config, logger SLogger) *BindFunc {
	return &BindFunc{
		Address:        cfg.BindAddress,
		ErrClassifier:  cfg.ErrClassifier,
		Logger:         logger,
		PacketListener: cfg.PacketListener,
		TimeNow:        cfg.TimeNow,
	}
}

// BindFunc binds a UDP socket and wraps it into a [*DatagramChannel].
//
// Returns either a valid channel or a [*BindError], never both.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type BindFunc struct {
	// Address is the local endpoint to bind.
	//
	// Set by [NewBindFunc] from [Config.BindAddress].
	Address string

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewBindFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewBindFunc] to the user-provided logger.
	Logger SLogger

	// PacketListener creates the socket.
	//
	// Set by [NewBindFunc] from [Config.PacketListener].
	PacketListener PacketListener

	// TimeNow is the function to get the current time.
	//
	// Set by [NewBindFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[Unit, *DatagramChannel] = &BindFunc{}

// Call binds the configured local endpoint.
func (op *BindFunc) Call(ctx context.Context, _ Unit) (*DatagramChannel, error) {
	t0 := op.TimeNow()
	op.Logger.Info(
		"bindStart",
		slog.String("localAddr", op.Address),
		slog.String("protocol", "udp"),
		slog.Time("t", t0),
	)

	pconn, err := op.PacketListener.ListenPacket(ctx, "udp", op.Address)
	if err != nil {
		err = &BindError{Address: op.Address, Err: err}
	}

	var laddr string
	if pconn != nil {
		laddr = pconn.LocalAddr().String()
	}
	op.Logger.Info(
		"bindDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", laddr),
		slog.String("protocol", "udp"),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
	if err != nil {
		return nil, err
	}

	return &DatagramChannel{
		pconn:         pconn,
		laddr:         laddr,
		ErrClassifier: op.ErrClassifier,
		Logger:        op.Logger,
		TimeNow:       op.TimeNow,
	}, nil
}

// DatagramChannel is a bound UDP socket associated with at most one peer.
//
// This type owns the underlying socket. The caller is responsible for
// calling Close() when done. Construct via [*BindFunc].
//
// A channel supports one outstanding Receive at a time.
type DatagramChannel struct {
	pconn     net.PacketConn
	laddr     string
	peer      netip.AddrPort
	closeonce sync.Once

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the SLogger to use.
	Logger SLogger

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

// LocalAddr returns the bound local endpoint.
func (c *DatagramChannel) LocalAddr() net.Addr {
	return c.pconn.LocalAddr()
}

// Peer returns the peer set by Connect, if any.
func (c *DatagramChannel) Peer() netip.AddrPort {
	return c.peer
}

// Connect associates the channel with peer for subsequent Send and Receive.
//
// The peer must be a valid IPv4 endpoint with a non-zero port and a
// specified address; otherwise this returns a [*ConnectError].
func (c *DatagramChannel) Connect(peer netip.AddrPort) error {
	var err error
	switch {
	case !peer.IsValid():
		err = errors.New("invalid peer address")
	case !peer.Addr().Unmap().Is4():
		err = errors.New("peer is not an IPv4 address")
	case peer.Addr().IsUnspecified() || peer.Port() == 0:
		err = errors.New("peer is not reachable")
	}
	if err != nil {
		return &ConnectError{Address: peer.String(), Err: err}
	}
	c.peer = netip.AddrPortFrom(peer.Addr().Unmap(), peer.Port())
	return nil
}

// Send writes data to the peer as a single datagram.
func (c *DatagramChannel) Send(ctx context.Context, data []byte) error {
	if !c.peer.IsValid() {
		return &WriteError{Err: errPeerNotSet}
	}

	t0 := c.TimeNow()
	c.logIOStart("datagramSendStart", len(data), t0)
	count, err := c.pconn.WriteTo(data, net.UDPAddrFromAddrPort(c.peer))
	if err == nil && count != len(data) {
		err = fmt.Errorf("short write: %d of %d bytes", count, len(data))
	}
	c.logIODone("datagramSendDone", count, err, t0)

	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Receive blocks until a datagram from the peer arrives and returns at
// most maxSize bytes of it. Datagrams from other sources are dropped.
//
// When the context is done first, the wait is abandoned and the returned
// error wraps both [ErrTimeout] and the context error. Without a deadline
// or cancellation this may block forever.
func (c *DatagramChannel) Receive(ctx context.Context, maxSize int) ([]byte, error) {
	if !c.peer.IsValid() {
		return nil, &ReadError{Err: errPeerNotSet}
	}

	// Once the context is done, ctx.Err() is set and a past deadline
	// unblocks ReadFrom. On return the deadline is cleared, but only after
	// the callback, if started, has set it.
	expired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		c.pconn.SetReadDeadline(time.Unix(1, 0))
		close(expired)
	})
	defer func() {
		if !stop() {
			<-expired
			c.pconn.SetReadDeadline(time.Time{})
		}
	}()

	buf := make([]byte, maxSize)
	for {
		t0 := c.TimeNow()
		c.logIOStart("datagramReceiveStart", len(buf), t0)
		count, from, err := c.pconn.ReadFrom(buf)
		if err != nil && ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		c.logIODone("datagramReceiveDone", count, err, t0)

		if err != nil {
			return nil, &ReadError{Err: err}
		}
		if !c.fromPeer(from) {
			c.Logger.Debug(
				"datagramDropped",
				slog.String("localAddr", c.laddr),
				slog.String("protocol", "udp"),
				slog.String("remoteAddr", addrString(from)),
				slog.Time("t", c.TimeNow()),
			)
			continue
		}
		return buf[:count], nil
	}
}

// Close closes the socket. Subsequent calls return [net.ErrClosed].
func (c *DatagramChannel) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		t0 := c.TimeNow()
		c.Logger.Info(
			"closeStart",
			slog.String("localAddr", c.laddr),
			slog.String("protocol", "udp"),
			slog.String("remoteAddr", c.peerString()),
			slog.Time("t", t0),
		)
		err = c.pconn.Close()
		c.Logger.Info(
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", c.ErrClassifier.Classify(err)),
			slog.String("localAddr", c.laddr),
			slog.String("protocol", "udp"),
			slog.String("remoteAddr", c.peerString()),
			slog.Time("t0", t0),
			slog.Time("t", c.TimeNow()),
		)
	})
	return
}

func (c *DatagramChannel) fromPeer(from net.Addr) bool {
	udpAddr, ok := from.(*net.UDPAddr)
	if !ok {
		return false
	}
	ap := udpAddr.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()) == c.peer
}

func (c *DatagramChannel) peerString() string {
	if !c.peer.IsValid() {
		return ""
	}
	return c.peer.String()
}

func (c *DatagramChannel) logIOStart(msg string, size int, t0 time.Time) {
	c.Logger.Debug(
		msg,
		slog.Int("ioBufferSize", size),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", "udp"),
		slog.String("remoteAddr", c.peerString()),
		slog.Time("t", t0),
	)
}

func (c *DatagramChannel) logIODone(msg string, count int, err error, t0 time.Time) {
	c.Logger.Debug(
		msg,
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", "udp"),
		slog.String("remoteAddr", c.peerString()),
		slog.Time("t0", t0),
		slog.Time("t", c.TimeNow()),
	)
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
