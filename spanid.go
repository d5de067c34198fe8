// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying a span.
//
// A span is a sequence of operations failing in a single, specific way,
// such as a stub resolution or a fetch. Attach the ID to the logger using
// [*slog.Logger.With] so that all the events of a span can be correlated.
//
// This function panics if the system random number generator fails.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
