// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"fmt"
	"strconv"
	"strings"
)

// HTTPResponse is a response parsed by [ParseHTTPResponse].
type HTTPResponse struct {
	// StatusLine is the first line of the header block, without CRLF.
	StatusLine string

	// Headers maps each header key to its value. Neither the status
	// line nor the blank separator line appear here.
	Headers map[string]string

	// Body is everything after the blank separator line.
	Body string
}

// StatusCode parses the numeric code of the status line.
func (r *HTTPResponse) StatusCode() (int, error) {
	_, rest, _ := strings.Cut(r.StatusLine, " ")
	code, _, _ := strings.Cut(rest, " ")
	value, err := strconv.Atoi(code)
	if err != nil || value < 100 || value > 999 {
		return 0, fmt.Errorf("%w: invalid status line %q", ErrResponseParse, r.StatusLine)
	}
	return value, nil
}

// ParseHTTPResponse splits raw into status line, headers, and body.
//
// It returns false when raw lacks the CRLF CRLF separator between
// header block and body, which includes the empty input. Callers must
// treat false as [ErrResponseParse], not as an empty body.
//
// Header lines are split on the first ": "; lines without it are
// skipped. Keys are stored as received, so differently cased keys are
// distinct entries. When a header spelled exactly "Content-Length" has a
// valid value shorter than the body, the body is truncated to that length;
// other spellings are kept as headers but never truncate.
func ParseHTTPResponse(raw string) (*HTTPResponse, bool) {
	head, body, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		return nil, false
	}

	lines := strings.Split(head, "\n")
	resp := &HTTPResponse{
		StatusLine: strings.TrimSuffix(lines[0], "\r"),
		Headers:    map[string]string{},
		Body:       body,
	}
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		resp.Headers[key] = value
	}

	if length, ok := resp.contentLength(); ok && length < len(resp.Body) {
		resp.Body = resp.Body[:length]
	}
	return resp, true
}

// contentLength reads the header spelled exactly Content-Length.
func (r *HTTPResponse) contentLength() (int, bool) {
	value, found := r.Headers["Content-Length"]
	if !found {
		return 0, false
	}
	length, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || length < 0 {
		return 0, false
	}
	return length, true
}
