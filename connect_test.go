// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewConnectFunc populates all fields from Config and the provided logger.
func TestNewConnectFunc(t *testing.T) {
	fn := NewConnectFunc(NewConfig(), "udp", DefaultSLogger())
	require.NotNil(t, fn)
	assert.Equal(t, "udp", fn.Network)
	assert.NotNil(t, fn.Dialer)
	assert.NotNil(t, fn.ErrClassifier)
	assert.NotNil(t, fn.TimeNow)
}

// Call dials the endpoint using the configured network.
func TestConnectFunc(t *testing.T) {
	tests := []struct {
		// name describes what this test case verifies.
		name string

		// network is the network type.
		network string

		// address is the target address.
		address netip.AddrPort

		// dialErr is the error returned by the mock dialer.
		dialErr error
	}{
		{
			name:    "HTTP stream to a resolved address",
			network: "tcp",
			address: netip.MustParseAddrPort("93.184.216.34:80"),
		},

		{
			name:    "connected UDP socket to the resolver",
			network: "udp",
			address: netip.MustParseAddrPort("8.8.8.8:53"),
		},

		{
			name:    "connection refused",
			network: "tcp",
			address: netip.MustParseAddrPort("127.0.0.1:1"),
			dialErr: errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotNetwork, gotAddress string
			cfg := NewConfig()
			cfg.Dialer = &netstub.FuncDialer{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					gotNetwork, gotAddress = network, address
					if tt.dialErr != nil {
						return nil, tt.dialErr
					}
					conn := newMinimalConn()
					conn.CloseFunc = func() error { return nil }
					return conn, nil
				},
			}

			conn, err := NewConnectFunc(cfg, tt.network, DefaultSLogger()).Call(context.Background(), tt.address)

			assert.Equal(t, tt.network, gotNetwork)
			assert.Equal(t, tt.address.String(), gotAddress)
			if tt.dialErr != nil {
				require.ErrorIs(t, err, tt.dialErr)
				assert.Nil(t, conn)
				return
			}
			require.NoError(t, err)
			conn.Close()
		})
	}
}

// Call hands the caller's deadline to the dialer.
func TestConnectFuncCallerContextDeadline(t *testing.T) {
	cfg := NewConfig()
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil, ctx.Err()
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := NewConnectFunc(cfg, "tcp", DefaultSLogger()).Call(ctx, netip.MustParseAddrPort("93.184.216.34:80"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// Call emits connectStart/connectDone log events.
func TestConnectFuncLogging(t *testing.T) {
	logger, records := newCapturingLogger()
	cfg := NewConfig()
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := NewConnectFunc(cfg, "tcp", logger).Call(context.Background(), netip.MustParseAddrPort("93.184.216.34:80"))
	require.Error(t, err)

	require.Equal(t, []string{"connectStart", "connectDone"}, messages(*records))
	attrs := recordAttrs((*records)[1])
	assert.Equal(t, "93.184.216.34:80", attrs["remoteAddr"].String())
	assert.Equal(t, "tcp", attrs["protocol"].String())
	assert.NotEmpty(t, attrs["errClass"].String())
}
