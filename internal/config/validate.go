package config

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

func checkUint8NonZero(v int) error {
	if v < 1 || math.MaxUint8 < v {
		return fmt.Errorf("out of range[%d-%d]", 1, math.MaxUint8)
	}

	return nil
}

func checkUint16(v int) error {
	if v < 0 || math.MaxUint16 < v {
		return fmt.Errorf("out of range[%d-%d]", 0, math.MaxUint16)
	}

	return nil
}

func checkHostPort(v string) error {
	host, portStr, err := net.SplitHostPort(v)
	if err != nil {
		return fmt.Errorf("wrong format: %w", err)
	}

	if net.ParseIP(host) == nil {
		return fmt.Errorf("invalid ip addr %q", host)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q", portStr)
	}

	return checkUint16(port)
}

func checkLogLevel(v string) error {
	if !slices.Contains(availableLogLevels, strings.ToLower(v)) {
		return fmt.Errorf("invalid level %q; available: %v", v, availableLogLevels)
	}

	return nil
}

func checkDNSMode(v string) error {
	if !slices.Contains(availableDNSModes, strings.ToLower(v)) {
		return fmt.Errorf("invalid dns mode %q; available: %v", v, availableDNSModes)
	}

	return nil
}

func checkDNSQueryType(v string) error {
	if !slices.Contains(availableDNSQueries, strings.ToLower(v)) {
		return fmt.Errorf("invalid query type %q; available: %v", v, availableDNSQueries)
	}

	return nil
}

func checkHTTPSEndpoint(v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("wrong format: %w", err)
	}

	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("should start with 'https://'")
	}

	return nil
}
