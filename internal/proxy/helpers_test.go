package proxy

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/proxyd/proxyd/internal/dns"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	mu    sync.Mutex
	addrs map[string]string
	calls []string
}

func (r *fakeResolver) Resolve(ctx context.Context, host string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, host)
	if addr, ok := r.addrs[host]; ok {
		return addr, nil
	}

	return "", fmt.Errorf("%w for %s: no such host", dns.ErrResolution, host)
}

func (r *fakeResolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

// redirectDialer records the requested address and connects to target
// instead, so that port 80 traffic lands on a loopback origin.
type redirectDialer struct {
	mu     sync.Mutex
	target string
	err    error
	dialed []string
}

func (d *redirectDialer) DialContext(
	ctx context.Context,
	network, address string,
) (net.Conn, error) {
	d.mu.Lock()
	d.dialed = append(d.dialed, address)
	d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}

	var nd net.Dialer
	return nd.DialContext(ctx, network, d.target)
}

func (d *redirectDialer) Dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.dialed...)
}

// origin is a one-response-per-connection server that records the raw
// requests it receives.
type origin struct {
	ln       net.Listener
	response []byte
	requests chan []byte
}

func startOrigin(t *testing.T, response []byte) *origin {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	o := &origin{ln: ln, response: response, requests: make(chan []byte, 8)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go o.handle(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })

	return o
}

func (o *origin) Addr() string {
	return o.ln.Addr().String()
}

func (o *origin) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	var req []byte
	buf := make([]byte, 4096)
	for !isComplete(req) {
		n, err := conn.Read(buf)
		req = append(req, buf[:n]...)
		if err != nil {
			return
		}
	}

	o.requests <- req
	_, _ = conn.Write(o.response)
}

// isComplete reports whether req holds a full header block and as many body
// bytes as its Content-Length announces.
func isComplete(req []byte) bool {
	i := bytes.Index(req, []byte("\r\n\r\n"))
	if i < 0 {
		return false
	}

	for _, line := range strings.Split(string(req[:i]), "\r\n") {
		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			n, _ := strconv.Atoi(v)
			return len(req)-(i+4) >= n
		}
	}

	return true
}

func newTestResponse(bodySize int) []byte {
	body := bytes.Repeat([]byte("0123456789abcdef"), bodySize/16+1)[:bodySize]
	header := fmt.Sprintf(
		"HTTP/1.1 200 OK\r\nContent-Length: %d\r\nConnection: close\r\n\r\n",
		bodySize,
	)

	return append([]byte(header), body...)
}
