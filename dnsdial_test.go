// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The cross-check transport never dials on its own.
func TestDNSUnusedDialerPanics(t *testing.T) {
	assert.Panics(t, func() {
		dnsUnusedDialer{}.DialContext(context.Background(), "udp", "8.8.8.8:53")
	})
}
