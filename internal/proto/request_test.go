package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestLine(t *testing.T) {
	tcs := []struct {
		name    string
		input   string
		want    RequestLine
		wantErr bool
	}{
		{
			name:  "proxy form",
			input: "GET http://example.com/path?q=1 HTTP/1.1",
			want:  RequestLine{"GET", "http://example.com/path?q=1", "HTTP/1.1"},
		},
		{
			name:  "origin form",
			input: "POST /submit HTTP/1.0",
			want:  RequestLine{"POST", "/submit", "HTTP/1.0"},
		},
		{name: "two tokens", input: "GET http://example.com/", wantErr: true},
		{name: "one token", input: "GET", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "double space", input: "GET  http://example.com/ HTTP/1.1", wantErr: true},
		{name: "extra token", input: "GET http://example.com/ HTTP/1.1 x", wantErr: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rl, err := ParseRequestLine(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRequest)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, rl)
			assert.Equal(t, tc.input, rl.String())
		})
	}
}

func TestParseTarget(t *testing.T) {
	tcs := []struct {
		name    string
		input   string
		want    Target
		wantErr bool
	}{
		{"path and query", "http://example.com/path?q=1", Target{"example.com", "/path?q=1"}, false},
		{"root path", "http://example.com/", Target{"example.com", "/"}, false},
		{"no path", "http://example.com", Target{"example.com", "/"}, false},
		{"query without path", "http://example.com?a=b", Target{"example.com", "/?a=b"}, false},
		{"explicit port 80", "http://example.com:80/x", Target{"example.com", "/x"}, false},
		{"fragment dropped", "http://example.com/x#frag", Target{"example.com", "/x"}, false},
		{"upper case scheme", "HTTP://example.com/x", Target{"example.com", "/x"}, false},
		{"ipv6 host", "http://[::1]/x", Target{"::1", "/x"}, false},
		{"origin form", "/path", Target{}, true},
		{"https scheme", "https://example.com/", Target{}, true},
		{"other port", "http://example.com:8080/", Target{}, true},
		{"missing host", "http:///path", Target{}, true},
		{"invalid uri", "http://exa mple.com/", Target{}, true},
		{"pipe kept verbatim", "http://example.com/a|b", Target{"example.com", "/a|b"}, false},
		{"braces kept verbatim", "http://example.com/{x}", Target{"example.com", "/{x}"}, false},
		{"non-ascii kept verbatim", "http://example.com/café", Target{"example.com", "/café"}, false},
		{"escapes kept verbatim", "http://example.com/a%20b?q=%41", Target{"example.com", "/a%20b?q=%41"}, false},
		{"invalid escape passed through", "http://example.com/a%zz", Target{"example.com", "/a%zz"}, false},
		{"fragment only", "http://example.com#top", Target{"example.com", "/"}, false},
		{"missing scheme separator", "http:example.com/", Target{}, true},
		{"ftp scheme", "ftp://example.com/", Target{}, true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			target, err := ParseTarget(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRequest)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, target)
		})
	}
}

func TestParseRequest_RewriteHeaders(t *testing.T) {
	tcs := []struct {
		name     string
		input    []string
		want     []string
		wantHost string
		wantErr  bool
	}{
		{
			name:     "appends connection close",
			input:    []string{"GET http://example.com/get HTTP/1.1", "Host: example.com"},
			want:     []string{"GET /get HTTP/1.1", "Host: example.com", "Connection: close"},
			wantHost: "example.com",
		},
		{
			name: "replaces proxy-connection",
			input: []string{
				"GET http://example.com/path?q=1 HTTP/1.1",
				"Host: example.com",
				"Proxy-connection: keep-alive",
				"Accept: */*",
			},
			want: []string{
				"GET /path?q=1 HTTP/1.1",
				"Host: example.com",
				"Connection: close",
				"Accept: */*",
			},
			wantHost: "example.com",
		},
		{
			name: "replaces connection",
			input: []string{
				"GET http://example.com/ HTTP/1.1",
				"Connection: keep-alive",
				"Host: example.com",
			},
			want: []string{
				"GET / HTTP/1.1",
				"Connection: close",
				"Host: example.com",
			},
			wantHost: "example.com",
		},
		{
			name: "header name is matched case-insensitively",
			input: []string{
				"GET http://example.com/ HTTP/1.1",
				"Proxy-Connection: keep-alive",
			},
			want:     []string{"GET / HTTP/1.1", "Connection: close"},
			wantHost: "example.com",
		},
		{
			name: "only the first connection field is replaced",
			input: []string{
				"GET http://example.com/ HTTP/1.1",
				"Proxy-connection: keep-alive",
				"X-Connection: keep-alive",
			},
			want: []string{
				"GET / HTTP/1.1",
				"Connection: close",
				"X-Connection: keep-alive",
			},
			wantHost: "example.com",
		},
		{
			name: "value mentioning connection is kept",
			input: []string{
				"GET http://example.com/ HTTP/1.1",
				"X-Note: Connection: keep-alive",
			},
			want: []string{
				"GET / HTTP/1.1",
				"X-Note: Connection: keep-alive",
				"Connection: close",
			},
			wantHost: "example.com",
		},
		{
			name:     "bare host defaults to root",
			input:    []string{"GET http://example.com HTTP/1.0"},
			want:     []string{"GET / HTTP/1.0", "Connection: close"},
			wantHost: "example.com",
		},
		{name: "empty", input: []string{}, wantErr: true},
		{name: "bad request line", input: []string{"GET"}, wantErr: true},
		{name: "bad target", input: []string{"GET /relative HTTP/1.1"}, wantErr: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			input := append([]string(nil), tc.input...)

			rl, target, err := ParseRequest(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRequest)
				return
			}

			require.NoError(t, err)

			lines := RewriteHeaders(tc.input, rl, target)
			assert.Equal(t, tc.want, lines)
			assert.Equal(t, tc.wantHost, target.Host)
			assert.Equal(t, input, tc.input, "input must not be modified")
		})
	}
}

func TestRewriteHeaders_LineCount(t *testing.T) {
	rl := RequestLine{"GET", "http://example.com/", "HTTP/1.1"}
	target := Target{Host: "example.com", OriginForm: "/"}

	withField := []string{rl.String(), "Host: example.com", "Proxy-connection: keep-alive"}
	withoutField := []string{rl.String(), "Host: example.com"}

	assert.Len(t, RewriteHeaders(withField, rl, target), len(withField))
	assert.Len(t, RewriteHeaders(withoutField, rl, target), len(withoutField)+1)
}

func TestRewriteHeaders_Assembled(t *testing.T) {
	buf := []byte("GET http://example.com/get HTTP/1.1\r\nHost: example.com\r\n\r\n")

	lines, body, err := SplitHeaderAndBody(buf, len(buf))
	require.NoError(t, err)

	rl, target, err := ParseRequest(lines)
	require.NoError(t, err)
	rewritten := RewriteHeaders(lines, rl, target)

	assert.Equal(
		t,
		"GET /get HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n",
		string(Assemble(rewritten, body)),
	)
}
