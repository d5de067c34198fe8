// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// errResponseTooLarge is returned when the peer sends more than allowed.
var errResponseTooLarge = errors.New("response exceeds maximum size")

// httpStreamReader reads a response stream until the peer closes it,
// emitting httpResponseStreamStart lazily on the first Read and
// httpResponseStreamDone once reading is over.
type httpStreamReader struct {
	body      io.Reader
	count     int64
	errClass  ErrClassifier
	laddr     string
	logger    SLogger
	protocol  string
	raddr     string
	startOnce sync.Once
	t0        time.Time
	timeNow   func() time.Time
}

var _ io.Reader = &httpStreamReader{}

// Read implements [io.Reader].
func (r *httpStreamReader) Read(buffer []byte) (int, error) {
	r.startOnce.Do(func() {
		r.t0 = r.timeNow()
		r.logger.Info(
			"httpResponseStreamStart",
			slog.String("localAddr", r.laddr),
			slog.String("protocol", r.protocol),
			slog.String("remoteAddr", r.raddr),
			slog.Time("t", r.t0),
		)
	})
	count, err := r.body.Read(buffer)
	r.count += int64(count)
	return count, err
}

// readAll reads until EOF, failing when more than limit bytes arrive.
//
// A nil error means the peer closed the stream.
func (r *httpStreamReader) readAll(limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err == nil && int64(len(data)) > limit {
		err = fmt.Errorf("%w: limit is %d bytes", errResponseTooLarge, limit)
	}
	r.logger.Info(
		"httpResponseStreamDone",
		slog.Any("err", err),
		slog.String("errClass", r.errClass.Classify(err)),
		slog.Int64("ioBytesCount", r.count),
		slog.String("localAddr", r.laddr),
		slog.String("protocol", r.protocol),
		slog.String("remoteAddr", r.raddr),
		slog.Time("t0", r.t0),
		slog.Time("t", r.timeNow()),
	)
	return data, err
}
