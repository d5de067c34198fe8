// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import "context"

// Compose2 chains two [Func] so that the output of op1 feeds op2.
//
// When op1 fails, op2 is not invoked and op1's error is returned.
func Compose2[A, B, C any](op1 Func[A, B], op2 Func[B, C]) Func[A, C] {
	return FuncAdapter[A, C](func(ctx context.Context, input A) (C, error) {
		mid, err := op1.Call(ctx, input)
		if err != nil {
			var zero C
			return zero, err
		}
		return op2.Call(ctx, mid)
	})
}

// Compose4 chains four [Func] together.
func Compose4[A, B, C, D, E any](op1 Func[A, B], op2 Func[B, C], op3 Func[C, D], op4 Func[D, E]) Func[A, E] {
	return Compose2(op1, Compose2(op2, Compose2(op3, op4)))
}

// ConstFunc lifts a value into a [Func[Unit, B]] that always returns it.
func ConstFunc[B any](value B) Func[Unit, B] {
	return FuncAdapter[Unit, B](func(ctx context.Context, _ Unit) (B, error) {
		return value, nil
	})
}
