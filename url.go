// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import "strings"

// URL is the parsed form of a fetch target.
//
// Construct using [ParseURL]. Path is never empty.
type URL struct {
	// Scheme is the URL scheme, "http" when the input has none.
	Scheme string

	// Host is the host segment, possibly including an explicit ":port".
	Host string

	// Path is the path, "/" when the input has none.
	Path string
}

// String returns the host, which is what identifies the peer of a fetch.
func (u URL) String() string {
	return u.Host
}

// ParseURL splits the input into scheme, host, and path.
//
// Inputs without "://" are treated as "http://" URLs. An input without a
// host segment (e.g., "http://" or "http:///index.html") yields [ErrParseURL].
// Query strings and fragments are kept as part of the path.
func ParseURL(input string) (URL, error) {
	scheme, rest, found := strings.Cut(input, "://")
	if !found {
		scheme, rest = "http", input
	}
	host, path, _ := strings.Cut(rest, "/")
	if scheme == "" || host == "" {
		return URL{}, ErrParseURL
	}
	return URL{Scheme: scheme, Host: host, Path: "/" + path}, nil
}
