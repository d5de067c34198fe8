// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import "github.com/bassosimone/errclass"

// ErrClassifier maps errors to short categorical labels (e.g., "ETIMEDOUT",
// "ECONNREFUSED") that end up in the errClass field of *Done events.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies using [errclass.New], which returns
// an empty string for a nil error.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
