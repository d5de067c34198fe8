// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"net"
)

// NewCancelWatchFunc returns a new [*CancelWatchFunc].
func NewCancelWatchFunc() *CancelWatchFunc {
	return &CancelWatchFunc{}
}

// CancelWatchFunc closes a connection as soon as the context is done,
// causing blocked I/O to fail immediately (e.g., on ^C via
// [signal.NotifyContext]).
//
// Closing the returned connection unregisters the watcher, so no
// goroutine leaks even when the context is never cancelled.
//
// Only use this when the context lifetime matches the connection
// lifetime. [*ClientSession] instead watches each operation's context
// separately, since its stream outlives the context used to connect.
type CancelWatchFunc struct{}

var _ Func[net.Conn, net.Conn] = &CancelWatchFunc{}

// Call registers the watcher and wraps conn.
func (op *CancelWatchFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	return &cancelWatchedConn{Conn: conn, stop: closeOnDone(ctx, conn)}, nil
}

type cancelWatchedConn struct {
	net.Conn
	stop func() bool
}

// Close unregisters the watcher and closes the underlying connection.
func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

// closeOnDone closes conn when ctx is done, until the returned
// function is called.
func closeOnDone(ctx context.Context, conn net.Conn) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		conn.Close()
	})
}
