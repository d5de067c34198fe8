// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FuncAdapter turns a resolver-shaped function into a Func.
func TestFuncAdapter(t *testing.T) {
	var got string
	resolver := FuncAdapter[string, netip.Addr](func(ctx context.Context, host string) (netip.Addr, error) {
		got = host
		if host == "" {
			return netip.Addr{}, errors.New("empty")
		}
		return netip.MustParseAddr("10.0.0.1"), nil
	})

	addr, err := resolver.Call(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", got)
	assert.Equal(t, "10.0.0.1", addr.String())

	_, err = resolver.Call(context.Background(), "")
	require.Error(t, err)
}
