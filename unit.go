// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

// Unit is the empty input or output of a [Func] (like `void` in C).
//
// For example, [*BindFunc] takes a Unit since the local endpoint
// comes from the [*Config].
type Unit struct{}
