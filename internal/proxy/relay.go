package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/proxyd/proxyd/internal/logging"
	"github.com/proxyd/proxyd/internal/netutil"
	"github.com/proxyd/proxyd/internal/proto"
	"github.com/proxyd/proxyd/internal/session"
	"github.com/rs/zerolog"
)

// errClientClosed ends the request loop without being reported as a failure.
var errClientClosed = errors.New("client closed connection")

// Resolver maps a host onto a single address. *dns.Cache satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// Relay drives the request loop of client connections. A single Relay is
// shared by every connection accepted by a Server.
type Relay struct {
	logger zerolog.Logger

	resolver Resolver
	dialer   netutil.Dialer
	timeout  time.Duration

	// observe, when set, is called on every state transition.
	observe func(ctx context.Context, s State)
}

func NewRelay(
	logger zerolog.Logger,
	resolver Resolver,
	dialer netutil.Dialer,
	timeout time.Duration,
) *Relay {
	return &Relay{
		logger:   logger,
		resolver: resolver,
		dialer:   dialer,
		timeout:  timeout,
	}
}

// Serve handles requests on conn until the client goes away or a step
// fails. conn is always closed when Serve returns.
func (r *Relay) Serve(ctx context.Context, conn net.Conn) {
	logger := logging.WithLocalScope(ctx, r.logger, "conn")
	defer netutil.CloseConns(conn)

	logger.Debug().Str("from", conn.RemoteAddr().String()).Msg("new conn")

	bufPtr := netutil.GetBuffer()
	defer netutil.PutBuffer(bufPtr)

	state, err := r.handleRequest(ctx, conn, *bufPtr)
	r.transition(ctx, state, StateClose)

	if errors.Is(err, errClientClosed) {
		logger.Debug().Msg("client closed")
		return
	}

	if state == StateResolve {
		logging.WarnUnwrapped(&logger, "dns lookup failed; closing connection", err)
		return
	}

	logger.Warn().Err(err).Stringer("state", state).Msg("closing connection")
}

// handleRequest runs the loop from WaitRequest until a step fails. It only
// returns on failure, reporting the state that failed.
func (r *Relay) handleRequest(
	ctx context.Context,
	conn net.Conn,
	buf []byte,
) (State, error) {
	state := StateWaitRequest
	for {
		reqCtx := ctx

		n, err := conn.Read(buf)
		if n == 0 {
			if err == nil || netutil.IsClosedByPeer(err) {
				return state, errClientClosed
			}

			return state, fmt.Errorf("%w: read: %w", netutil.ErrIO, err)
		}

		state = r.transition(reqCtx, state, state.next())
		lines, body, err := proto.SplitHeaderAndBody(buf, n)
		if err != nil {
			return state, err
		}

		rl, target, err := proto.ParseRequest(lines)
		if err != nil {
			return state, err
		}

		reqCtx = session.WithRemoteInfo(reqCtx, target.Host)
		logger := logging.WithLocalScope(reqCtx, r.logger, "request")
		logger.Debug().Str("method", rl.Method).Int("len", n).Msg("new request")

		state = r.transition(reqCtx, state, state.next())
		t1 := time.Now()
		addr, err := r.resolver.Resolve(reqCtx, target.Host)
		if err != nil {
			return state, err
		}

		logger.Debug().
			Str("addr", addr).
			Str("took", fmt.Sprintf("%dms", time.Since(t1).Milliseconds())).
			Msg("dns lookup ok")

		state = r.transition(reqCtx, state, state.next())
		out := proto.Assemble(proto.RewriteHeaders(lines, rl, target), body)

		state = r.transition(reqCtx, state, state.next())
		upstream, err := netutil.DialUpstream(reqCtx, r.dialer, addr, proto.OriginPort, r.timeout)
		if err != nil {
			return state, err
		}

		state, err = r.exchange(reqCtx, logger, state, conn, upstream, out)
		netutil.CloseConns(upstream)
		if err != nil {
			return state, err
		}

		state = r.transition(reqCtx, state, state.next())
	}
}

// exchange sends the rewritten request and streams the response back to
// the client until the origin closes the connection.
func (r *Relay) exchange(
	ctx context.Context,
	logger zerolog.Logger,
	state State,
	client net.Conn,
	upstream net.Conn,
	out []byte,
) (State, error) {
	state = r.transition(ctx, state, state.next())
	if err := netutil.WriteFull(upstream, out); err != nil {
		return state, err
	}

	state = r.transition(ctx, state, state.next())
	t1 := time.Now()
	n, err := netutil.RelayChunks(client, upstream)
	if err != nil {
		return state, err
	}

	logger.Debug().
		Int64("len", n).
		Str("took", fmt.Sprintf("%dms", time.Since(t1).Milliseconds())).
		Str("route", fmt.Sprintf("%s -> %s", upstream.RemoteAddr(), client.RemoteAddr())).
		Msg("response relayed")

	return state, nil
}

func (r *Relay) transition(ctx context.Context, from State, to State) State {
	if from != to {
		r.logger.Trace().Ctx(ctx).Msgf("%s -> %s", from, to)
	}

	if r.observe != nil {
		r.observe(ctx, to)
	}

	return to
}
