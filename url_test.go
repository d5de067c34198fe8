// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ParseURL splits scheme, host, and path with defaults.
func TestParseURL(t *testing.T) {
	tests := []struct {
		// name describes what this test case verifies.
		name string

		// input is the URL to parse.
		input string

		// want is the expected result, valid when wantErr is false.
		want URL

		// wantErr indicates whether we expect ErrParseURL.
		wantErr bool
	}{
		{
			name:  "bare host",
			input: "example.com",
			want:  URL{Scheme: "http", Host: "example.com", Path: "/"},
		},

		{
			name:  "scheme and path",
			input: "http://example.com/index.html",
			want:  URL{Scheme: "http", Host: "example.com", Path: "/index.html"},
		},

		{
			name:  "explicit port and nested path",
			input: "http://127.0.0.1:8080/a/b",
			want:  URL{Scheme: "http", Host: "127.0.0.1:8080", Path: "/a/b"},
		},

		{
			name:  "query string stays in the path",
			input: "example.com/search?q=go",
			want:  URL{Scheme: "http", Host: "example.com", Path: "/search?q=go"},
		},

		{
			name:  "trailing slash",
			input: "example.com/",
			want:  URL{Scheme: "http", Host: "example.com", Path: "/"},
		},

		{name: "empty input", input: "", wantErr: true},
		{name: "scheme only", input: "http://", wantErr: true},
		{name: "path without host", input: "http:///index.html", wantErr: true},
		{name: "empty scheme", input: "://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrParseURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Host, got.String())
		})
	}
}
