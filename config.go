// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"math/rand/v2"
	"net"
	"net/netip"
	"time"
)

// DefaultResolverEndpoint is the upstream used by the stub resolver.
var DefaultResolverEndpoint = netip.MustParseAddrPort("8.8.8.8:53")

const (
	// DefaultBindAddress makes the OS choose an ephemeral UDP port.
	DefaultBindAddress = "0.0.0.0:0"

	// DefaultMaxDNSResponseSize is the classic DNS-over-UDP message limit.
	DefaultMaxDNSResponseSize = 512

	// DefaultMaxHTTPResponseSize bounds reading a response until EOF.
	DefaultMaxHTTPResponseSize = 16 << 20

	// DefaultHTTPPort is the port used when the URL host has no port.
	DefaultHTTPPort = 80
)

// Config holds common configuration for stubfetch operations.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Dialer is used by [*ConnectFunc] to open stream connections.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// PacketListener is used by [*BindFunc] to bind datagram channels.
	//
	// Set by [NewConfig] to [*net.ListenConfig].
	PacketListener PacketListener

	// BindAddress is the local endpoint datagram channels bind to.
	//
	// Set by [NewConfig] to [DefaultBindAddress].
	BindAddress string

	// ResolverEndpoint is the upstream DNS server.
	//
	// Set by [NewConfig] to [DefaultResolverEndpoint].
	ResolverEndpoint netip.AddrPort

	// MaxDNSResponseSize is the receive buffer size for DNS responses.
	//
	// Set by [NewConfig] to [DefaultMaxDNSResponseSize].
	MaxDNSResponseSize int

	// MaxHTTPResponseSize is the maximum number of bytes read from a stream.
	//
	// Set by [NewConfig] to [DefaultMaxHTTPResponseSize].
	MaxHTTPResponseSize int64

	// HTTPPort is the port used when the URL does not specify one.
	//
	// Set by [NewConfig] to [DefaultHTTPPort].
	HTTPPort uint16

	// NewTransactionID returns a uniformly random DNS transaction ID.
	//
	// Set by [NewConfig] to a function using [math/rand/v2].
	NewTransactionID func() uint16

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Metrics records resolution and fetch outcomes.
	//
	// Set by [NewConfig] to [DefaultMetricsRecorder].
	Metrics MetricsRecorder

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:              &net.Dialer{},
		PacketListener:      &net.ListenConfig{},
		BindAddress:         DefaultBindAddress,
		ResolverEndpoint:    DefaultResolverEndpoint,
		MaxDNSResponseSize:  DefaultMaxDNSResponseSize,
		MaxHTTPResponseSize: DefaultMaxHTTPResponseSize,
		HTTPPort:            DefaultHTTPPort,
		NewTransactionID:    randomTransactionID,
		ErrClassifier:       DefaultErrClassifier,
		Metrics:             DefaultMetricsRecorder(),
		TimeNow:             time.Now,
	}
}

func randomTransactionID() uint16 {
	return uint16(rand.Uint32())
}
