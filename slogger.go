// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

// SLogger abstracts the [*slog.Logger] behavior.
//
// Two levels are in use:
//   - Info for span events (bind, connect, close, DNS exchange, HTTP
//     request write and response read) and for DNS wire observations
//   - Debug for per-I/O events (read, write, dropped datagrams)
//
// The [*slog.Logger] type satisfies this interface.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns a logger that discards everything.
//
// Libraries should not write to stdout/stderr unless asked to, so
// pass a [*slog.Logger] to the constructors to see the events.
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

type discardSLogger struct{}

var _ SLogger = discardSLogger{}

// Debug implements [SLogger].
func (discardSLogger) Debug(msg string, args ...any) {}

// Info implements [SLogger].
func (discardSLogger) Info(msg string, args ...any) {}
