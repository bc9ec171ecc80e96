package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var ErrUpstreamConnect = errors.New("upstream connect failed")

// Dialer opens outbound connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialUpstream opens a TCP connection to ip:port. A timeout of 0 leaves the
// attempt bounded by ctx alone.
func DialUpstream(
	ctx context.Context,
	dialer Dialer,
	ip string,
	port int,
	timeout time.Duration,
) (net.Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w to %s: %w", ErrUpstreamConnect, addr, err)
	}

	return conn, nil
}
