// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Method is an HTTP request method.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// String implements [fmt.Stringer].
func (m Method) String() string {
	return string(m)
}

// DefaultProtocolVersion is the version written in the request line.
const DefaultProtocolVersion = "HTTP/1.1"

// HTTPRequest describes the request written by [WriteHTTPRequest].
//
// The host and path come from the [URL] being fetched. Content-Length is
// derived from Body and never stored.
type HTTPRequest struct {
	// Method is the request method.
	Method Method

	// Headers contains the caller headers. Order is irrelevant.
	//
	// Host, Content-Length, and Connection are always derived and the
	// corresponding entries, in any letter case, are ignored. Serializing
	// and then parsing the request therefore preserves every other pair,
	// while those three keys come back with their derived values.
	Headers map[string]string

	// Body is the optional request body.
	Body []byte

	// ProtocolVersion is the version in the request line.
	//
	// When empty, [DefaultProtocolVersion] is used.
	ProtocolVersion string
}

// NewHTTPRequest returns a GET request without headers and body.
func NewHTTPRequest() *HTTPRequest {
	return &HTTPRequest{
		Method:          MethodGet,
		Headers:         map[string]string{},
		ProtocolVersion: DefaultProtocolVersion,
	}
}

// ContentLength returns the length of the body (zero when absent).
func (r *HTTPRequest) ContentLength() int {
	return len(r.Body)
}

// Serialize returns the request bytes for the given host and path.
//
// The request line and the Host header come first; the caller headers
// follow in lexicographic order; then Content-Length and "Connection:
// Close" (connections are never reused). A present body is followed by
// a trailing CRLF CRLF.
func (r *HTTPRequest) Serialize(host, path string) []byte {
	version := r.ProtocolVersion
	if version == "" {
		version = DefaultProtocolVersion
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s %s\r\n", r.Method, path, version)
	fmt.Fprintf(&buf, "Host: %s\r\n", host)
	for _, key := range slices.Sorted(maps.Keys(r.Headers)) {
		if isDerivedHeader(key) {
			continue
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", key, r.Headers[key])
	}
	buf.WriteString("Content-Length: " + strconv.Itoa(r.ContentLength()) + "\r\n")
	buf.WriteString("Connection: Close\r\n")
	buf.WriteString("\r\n")
	if r.Body != nil {
		buf.Write(r.Body)
		buf.WriteString("\r\n\r\n")
	}
	return buf.Bytes()
}

func isDerivedHeader(key string) bool {
	switch strings.ToLower(key) {
	case "host", "content-length", "connection":
		return true
	default:
		return false
	}
}

// WriteHTTPRequest serializes req and writes it to w with a single Write.
//
// Either the whole request is written or a [*WriteError] is returned.
func WriteHTTPRequest(w io.Writer, req *HTTPRequest, host, path string) error {
	data := req.Serialize(host, path)
	count, err := w.Write(data)
	if err == nil && count != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}
