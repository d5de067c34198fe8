// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewStatusServer returns a [*StatusServer] replying with statusLine
// to every peer accepted by listener.
//
// The server owns the listener, which is closed when Serve returns.
func NewStatusServer(cfg *Config, logger SLogger, listener net.Listener, statusLine string) *StatusServer {
	return &StatusServer{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		StatusLine:    statusLine,
		TimeNow:       cfg.TimeNow,
		listener:      listener,
	}
}

// StatusServer echoes the status line of a fetched [*HTTPResponse].
//
// Peers are served one at a time: read one chunk of the peer's
// request (a peer closing without sending anything still gets the
// status line), write the status line, close.
type StatusServer struct {
	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	Logger SLogger

	// StatusLine is written to each peer.
	StatusLine string

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time

	listener net.Listener
}

// Addr returns the listening address.
func (s *StatusServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts and serves peers until ctx is done, then closes the
// listener and returns the context error. Failing to accept a peer is
// logged and does not stop serving; consecutive failures are spaced by a
// delay doubling from [minAcceptDelay] up to [maxAcceptDelay].
func (s *StatusServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()
	defer s.listener.Close()

	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close()
			}
			return ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		if err != nil {
			s.Logger.Info(
				"acceptDone",
				slog.Any("err", err),
				slog.String("errClass", s.ErrClassifier.Classify(err)),
				slog.String("localAddr", addrString(s.listener.Addr())),
				slog.Time("t", s.TimeNow()),
			)
			delay = acceptBackoff(delay)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		s.serve(ctx, conn)
	}
}

func (s *StatusServer) serve(ctx context.Context, conn net.Conn) {
	stop := closeOnDone(ctx, conn)
	defer stop()
	defer conn.Close()

	t0 := s.TimeNow()
	buffer := make([]byte, 1024)
	_, err := conn.Read(buffer)
	if err == nil || errors.Is(err, io.EOF) {
		_, err = conn.Write([]byte(s.StatusLine))
	}
	s.Logger.Info(
		"statusServeDone",
		slog.Any("err", err),
		slog.String("errClass", s.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", s.TimeNow()),
	)
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// acceptBackoff returns the delay following prev after an Accept failure.
func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	return min(2*prev, maxAcceptDelay)
}
