// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"net"
)

// dnsUnusedDialer is a [Dialer] that panics when used.
//
// [*CrossCheckFunc] hands an already connected socket to the library
// transport, which therefore must never dial on its own.
type dnsUnusedDialer struct{}

var _ Dialer = dnsUnusedDialer{}

// DialContext implements [Dialer] and always panics.
func (dnsUnusedDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	panic("stubfetch: library DNS transport must not dial; this is a programming error")
}
