// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import "context"

// NewFetchFunc returns a [*FetchFunc] resolving names with a [*ResolveFunc].
func NewFetchFunc(cfg *Config, logger SLogger) *FetchFunc {
	return &FetchFunc{
		Connect: NewClientSessionFunc(cfg, logger, NewResolveFunc(cfg, logger)),
		Request: NewHTTPRequest,
	}
}

// FetchFunc turns a textual URL into a response.
//
// It parses the URL, connects a [*ClientSession], performs one round
// trip, and closes the session on both success and failure.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type FetchFunc struct {
	// Connect creates a connected session for the parsed URL.
	//
	// Set by [NewFetchFunc] to a [*ClientSessionFunc].
	Connect Func[URL, *ClientSession]

	// Request returns the request to send.
	//
	// Set by [NewFetchFunc] to [NewHTTPRequest].
	Request func() *HTTPRequest
}

var _ Func[string, *HTTPResponse] = &FetchFunc{}

// Call fetches rawURL. Errors are those of [ParseURL] and [*ClientSession].
func (op *FetchFunc) Call(ctx context.Context, rawURL string) (*HTTPResponse, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	session, err := op.Connect.Call(ctx, u)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return session.RoundTrip(ctx, op.Request())
}
