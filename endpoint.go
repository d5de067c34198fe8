// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import "net/netip"

// NewEndpointFunc returns a [Func] that always yields the given endpoint.
//
// [*CrossCheckFunc] uses it to start its pipeline from the resolver endpoint.
func NewEndpointFunc(endpoint netip.AddrPort) Func[Unit, netip.AddrPort] {
	return ConstFunc(endpoint)
}
