package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/miekg/dns"
	"github.com/proxyd/proxyd/internal/config"
)

var ErrResolution = errors.New("dns resolution failed")

// Lookuper performs an uncached name resolution, returning a single address.
type Lookuper interface {
	Info() string
	Lookup(ctx context.Context, host string) (string, error)
}

type exchangeFunc = func(ctx context.Context, msg *dns.Msg) (*dns.Msg, error)

// QueryTypes maps the configured query type onto DNS record types, in the
// order their answers are preferred.
func QueryTypes(qType config.DNSQueryType) []uint16 {
	switch qType {
	case config.DNSQueryIPv6:
		return []uint16{dns.TypeAAAA}
	case config.DNSQueryAll:
		return []uint16{dns.TypeA, dns.TypeAAAA}
	default:
		return []uint16{dns.TypeA}
	}
}

func newMsg(host string, qType uint16) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qType)
	msg.RecursionDesired = true

	return msg
}

// lookupAllTypes queries every record type concurrently through exchange and
// returns the first address following the order of qTypes. Answers inside a
// single response are taken in wire order.
func lookupAllTypes(
	ctx context.Context,
	host string,
	qTypes []uint16,
	exchange exchangeFunc,
) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	addrs := make([]string, len(qTypes))
	errs := make([]error, len(qTypes))

	var wg sync.WaitGroup
	for i, qType := range qTypes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addrs[i], errs[i] = lookupType(ctx, host, qType, exchange)
		}()
	}
	wg.Wait()

	for _, addr := range addrs {
		if addr != "" {
			return addr, nil
		}
	}

	if err := errors.Join(errs...); err != nil {
		return "", err
	}

	return "", fmt.Errorf("no address records for %s", host)
}

func lookupType(
	ctx context.Context,
	host string,
	qType uint16,
	exchange exchangeFunc,
) (string, error) {
	resMsg, err := exchange(ctx, newMsg(host, qType))
	if err != nil {
		return "", fmt.Errorf("query type %s: %w", dns.TypeToString[qType], err)
	}

	if resMsg.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf(
			"query type %s: rcode %s",
			dns.TypeToString[qType],
			dns.RcodeToString[resMsg.Rcode],
		)
	}

	for _, record := range resMsg.Answer {
		switch ipRecord := record.(type) {
		case *dns.A:
			return ipRecord.A.String(), nil
		case *dns.AAAA:
			return ipRecord.AAAA.String(), nil
		}
	}

	return "", nil
}
