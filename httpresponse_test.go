// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ParseHTTPResponse splits status line, headers, and body.
func TestParseHTTPResponse(t *testing.T) {
	tests := []struct {
		// name describes what this test case verifies.
		name string

		// raw is the response text.
		raw string

		// want is the expected result, nil when parsing must fail.
		want *HTTPResponse
	}{
		{
			name: "plain text response",
			raw:  "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhello",
			want: &HTTPResponse{
				StatusLine: "HTTP/1.1 200 OK",
				Headers:    map[string]string{"Content-Type": "text/plain"},
				Body:       "hello",
			},
		},

		{
			name: "no headers and empty body",
			raw:  "HTTP/1.1 204 No Content\r\n\r\n",
			want: &HTTPResponse{StatusLine: "HTTP/1.1 204 No Content", Headers: map[string]string{}},
		},

		{
			name: "body truncated to Content-Length",
			raw:  "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello\r\n\r\n",
			want: &HTTPResponse{
				StatusLine: "HTTP/1.1 200 OK",
				Headers:    map[string]string{"Content-Length": "5"},
				Body:       "hello",
			},
		},

		{
			name: "lowercase content-length does not truncate",
			raw:  "HTTP/1.1 200 OK\r\ncontent-length: 5\r\n\r\nhello\r\n\r\n",
			want: &HTTPResponse{
				StatusLine: "HTTP/1.1 200 OK",
				Headers:    map[string]string{"content-length": "5"},
				Body:       "hello\r\n\r\n",
			},
		},

		{
			name: "longer Content-Length keeps the body",
			raw:  "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort",
			want: &HTTPResponse{
				StatusLine: "HTTP/1.1 200 OK",
				Headers:    map[string]string{"Content-Length": "100"},
				Body:       "short",
			},
		},

		{
			name: "lines without separator are skipped and values keep colons",
			raw:  "HTTP/1.1 301 Moved\r\nbogus\r\nLocation: http://example.com/\r\n\r\n",
			want: &HTTPResponse{
				StatusLine: "HTTP/1.1 301 Moved",
				Headers:    map[string]string{"Location": "http://example.com/"},
			},
		},

		{
			name: "body contains another separator",
			raw:  "HTTP/1.1 200 OK\r\n\r\na\r\n\r\nb",
			want: &HTTPResponse{StatusLine: "HTTP/1.1 200 OK", Headers: map[string]string{}, Body: "a\r\n\r\nb"},
		},

		{name: "empty", raw: ""},
		{name: "headers without separator", raw: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n"},
		{name: "bare newlines", raw: "HTTP/1.1 200 OK\n\nhello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHTTPResponse(tt.raw)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Content-Length in two spellings yields the same body on every parse.
func TestParseHTTPResponseConflictingContentLength(t *testing.T) {
	const raw = "HTTP/1.1 200 OK\r\nContent-Length: 2\r\ncontent-length: 4\r\n\r\nhello"
	for range 50 {
		got, ok := ParseHTTPResponse(raw)
		require.True(t, ok)
		assert.Equal(t, "he", got.Body)
		assert.Equal(t, map[string]string{"Content-Length": "2", "content-length": "4"}, got.Headers)
	}
}

// StatusCode parses the second field of the status line.
func TestHTTPResponseStatusCode(t *testing.T) {
	code, err := (&HTTPResponse{StatusLine: "HTTP/1.1 404 Not Found"}).StatusCode()
	require.NoError(t, err)
	assert.Equal(t, 404, code)

	for _, line := range []string{"", "HTTP/1.1", "HTTP/1.1 abc OK", "HTTP/1.1 42 Odd"} {
		_, err := (&HTTPResponse{StatusLine: line}).StatusCode()
		require.ErrorIs(t, err, ErrResponseParse, "status line %q", line)
	}
}

// A serialized request parses back as a message with the same head.
func TestSerializeThenParse(t *testing.T) {
	req := &HTTPRequest{
		Method:  MethodPost,
		Headers: map[string]string{"Accept": "*/*"},
		Body:    []byte("payload"),
	}

	parsed, ok := ParseHTTPResponse(string(req.Serialize("example.com", "/submit")))

	require.True(t, ok)
	assert.Equal(t, "POST /submit HTTP/1.1", parsed.StatusLine)
	assert.Equal(t, map[string]string{
		"Host":           "example.com",
		"Accept":         "*/*",
		"Content-Length": "7",
		"Connection":     "Close",
	}, parsed.Headers)
	assert.Equal(t, "payload", parsed.Body)
}
