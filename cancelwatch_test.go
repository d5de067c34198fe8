// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCountingConn returns a conn counting the Close calls.
func newCountingConn() (*netstub.FuncConn, *atomic.Int64) {
	var count atomic.Int64
	conn := newMinimalConn()
	conn.CloseFunc = func() error {
		count.Add(1)
		return nil
	}
	return conn, &count
}

// Closing the wrapper closes the conn exactly once, even if the context is cancelled later.
func TestCancelWatchFuncClose(t *testing.T) {
	conn, count := newCountingConn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapped, err := NewCancelWatchFunc().Call(ctx, conn)
	require.NoError(t, err)
	require.NoError(t, wrapped.Close())
	assert.Equal(t, int64(1), count.Load())

	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), count.Load())
}

// Cancelling the context closes the conn, also when already cancelled at Call time.
func TestCancelWatchFuncClosesOnCancel(t *testing.T) {
	for _, precancel := range []bool{false, true} {
		conn, count := newCountingConn()
		ctx, cancel := context.WithCancel(context.Background())
		if precancel {
			cancel()
		}

		_, err := NewCancelWatchFunc().Call(ctx, conn)
		require.NoError(t, err)
		cancel()

		assert.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 10*time.Millisecond)
	}
}

// closeOnDone stops watching once the returned function runs.
func TestCloseOnDoneStop(t *testing.T) {
	conn, count := newCountingConn()
	ctx, cancel := context.WithCancel(context.Background())

	stop := closeOnDone(ctx, conn)
	assert.True(t, stop())
	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), count.Load())
}
