package dns

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

var _ Lookuper = (*SystemLookuper)(nil)

// SystemLookuper resolves through the operating system's configuration
// (/etc/hosts, /etc/resolv.conf) using the pure Go resolver.
type SystemLookuper struct {
	logger zerolog.Logger

	*net.Resolver
}

func NewSystemLookuper(logger zerolog.Logger) *SystemLookuper {
	return &SystemLookuper{
		logger:   logger,
		Resolver: &net.Resolver{PreferGo: true},
	}
}

func (sl *SystemLookuper) Info() string {
	return "system"
}

// Lookup returns the first IPv4 address of host, or the first address of any
// family when host has no IPv4 address.
func (sl *SystemLookuper) Lookup(ctx context.Context, host string) (string, error) {
	addrs, err := sl.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}

	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}

	for _, addr := range addrs {
		if addr.IP.To4() != nil {
			return addr.IP.String(), nil
		}
	}

	return addrs[0].IP.String(), nil
}
