package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/proxyd/proxyd/internal/config"
	"github.com/proxyd/proxyd/internal/netutil"
	"github.com/proxyd/proxyd/internal/ptr"
	"github.com/proxyd/proxyd/internal/session"
	"github.com/rs/zerolog"
)

// Server accepts client connections and hands each one to the shared Relay
// on its own goroutine. It performs no protocol work itself.
type Server struct {
	logger zerolog.Logger

	relay      *Relay
	serverOpts *config.ServerOptions

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(
	logger zerolog.Logger,
	resolver Resolver,
	dialer netutil.Dialer,
	serverOpts *config.ServerOptions,
) *Server {
	return &Server{
		logger: logger,
		relay: NewRelay(
			logger,
			resolver,
			dialer,
			ptr.FromPtrOr(serverOpts.Timeout, 0),
		),
		serverOpts: serverOpts,
	}
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.ListenTCP("tcp", s.serverOpts.ListenAddr)
	if err != nil {
		return fmt.Errorf("error creating listener on %s: %w", s.serverOpts.ListenAddr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done, then closes the
// listener. Connections already accepted keep running until their client or
// origin goes away.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logger := s.logger.With().Ctx(ctx).Logger()
	logger.Info().Msgf("created a listener on %s", listener.Addr())

	stop := context.AfterFunc(ctx, func() { netutil.CloseConns(listener) })
	defer stop()

	connCtx := context.WithoutCancel(ctx)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("listener closed")
				return nil
			}

			if errors.Is(err, net.ErrClosed) {
				return err
			}

			logger.Error().Err(err).Msg("failed to accept new connection")
			continue
		}

		go s.relay.Serve(session.WithNewTraceID(connCtx), conn)
	}
}

// Addr returns the address of the active listener, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}
