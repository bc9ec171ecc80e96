package dns

import (
	"context"
	"net"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

var _ Lookuper = (*PlainLookuper)(nil)

// PlainLookuper sends plain DNS queries over UDP to a single upstream server.
type PlainLookuper struct {
	logger zerolog.Logger

	upstream string
	qTypes   []uint16
	client   *dns.Client
}

func NewPlainLookuper(
	logger zerolog.Logger,
	server *net.TCPAddr,
	qTypes []uint16,
) *PlainLookuper {
	return &PlainLookuper{
		logger:   logger,
		upstream: server.String(),
		qTypes:   qTypes,
		client:   &dns.Client{Net: "udp"},
	}
}

func (pl *PlainLookuper) Info() string {
	return "udp(" + pl.upstream + ")"
}

func (pl *PlainLookuper) Lookup(ctx context.Context, host string) (string, error) {
	return lookupAllTypes(ctx, host, pl.qTypes, pl.exchange)
}

func (pl *PlainLookuper) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	resp, rtt, err := pl.client.ExchangeContext(ctx, msg, pl.upstream)
	if err != nil {
		return nil, err
	}

	pl.logger.Trace().
		Ctx(ctx).
		Str("q", msg.Question[0].Name).
		Dur("rtt", rtt).
		Msg("exchange")

	return resp, nil
}
