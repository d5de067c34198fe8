// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import "context"

// Func is an operation with exactly one success mode and one failure mode.
//
// Resource cleanup contract: a Func receiving a closeable resource as input
// must close it when returning an error, so that composed pipelines (see
// [Compose2]) do not leak on partial failure. [*ClientSessionFunc] follows
// this contract for the stream it opens.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a function as a [Func] implementation.
//
// This is handy for plugging a custom resolver into [NewClientSession],
// e.g., one backed by [*net.Resolver] when the system one is available.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}
