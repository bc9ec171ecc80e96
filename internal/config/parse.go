package config

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

type integer interface {
	~uint8 | ~uint16 | ~int
}

// parseBoolFn returns a parser that accepts TOML booleans only.
func parseBoolFn() func(any) (bool, error) {
	return func(v any) (bool, error) {
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("expected bool, got %T", v)
		}

		return b, nil
	}
}

// parseStringFn returns a parser that accepts strings, optionally running check
// on the raw value before it is returned.
func parseStringFn(check func(string) error) func(any) (string, error) {
	return func(v any) (string, error) {
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", v)
		}

		if check != nil {
			if err := check(s); err != nil {
				return "", err
			}
		}

		return s, nil
	}
}

// parseIntFn returns a parser for TOML integers (decoded as int64) that
// converts to T after check accepts the value.
func parseIntFn[T integer](check func(int) error) func(any) (T, error) {
	return func(v any) (T, error) {
		var n int
		switch i := v.(type) {
		case int64:
			n = int(i)
		case int:
			n = i
		default:
			return 0, fmt.Errorf("expected integer, got %T", v)
		}

		if check != nil {
			if err := check(n); err != nil {
				return 0, err
			}
		}

		return T(n), nil
	}
}

func isOk[T any](p *T, err error) bool {
	return p != nil && err == nil
}

// MustParseTCPAddr parses a host:port string. Callers are expected to run
// checkHostPort first.
func MustParseTCPAddr(s string) net.TCPAddr {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		panic(fmt.Sprintf("invalid host:port %q: %s", s, err))
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		panic(fmt.Sprintf("invalid port %q", portStr))
	}

	return net.TCPAddr{IP: net.ParseIP(host), Port: port}
}

func MustParseLogLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || !slices.Contains(availableLogLevels, strings.ToLower(s)) {
		panic(fmt.Sprintf("invalid log level %q", s))
	}

	return level
}

func MustParseDNSModeType(s string) DNSModeType {
	i := slices.Index(availableDNSModes, strings.ToLower(s))
	if i < 0 {
		panic(fmt.Sprintf("invalid dns mode %q", s))
	}

	return DNSModeType(i)
}

func MustParseDNSQueryType(s string) DNSQueryType {
	i := slices.Index(availableDNSQueries, strings.ToLower(s))
	if i < 0 {
		panic(fmt.Sprintf("invalid dns query type %q", s))
	}

	return DNSQueryType(i)
}
