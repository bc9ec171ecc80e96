package config

import (
	"fmt"
	"net"
	"time"

	"github.com/proxyd/proxyd/internal/ptr"
	"github.com/rs/zerolog"
)

type merger[T any] interface {
	Clone() T
	Merge(overrides T) T
}

func cloneTCPAddr(addr *net.TCPAddr) *net.TCPAddr {
	if addr == nil {
		return nil
	}

	return &net.TCPAddr{
		IP:   append(net.IP(nil), addr.IP...),
		Port: addr.Port,
		Zone: addr.Zone,
	}
}

// ┌─────────────────┐
// │ GENERAL OPTIONS │
// └─────────────────┘
var _ merger[*GeneralOptions] = (*GeneralOptions)(nil)

var availableLogLevels = []string{"trace", "debug", "info", "warn", "error"}

type GeneralOptions struct {
	LogLevel *zerolog.Level `toml:"log-level"`
	Silent   *bool          `toml:"silent"`
}

func (o *GeneralOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'general' must be table type")
	}

	o.Silent = findFrom(m, "silent", parseBoolFn(), &err)
	if p := findFrom(m, "log-level", parseStringFn(checkLogLevel), &err); isOk(p, err) {
		o.LogLevel = ptr.FromValue(MustParseLogLevel(*p))
	}

	return err
}

func (o *GeneralOptions) Clone() *GeneralOptions {
	if o == nil {
		return nil
	}

	return &GeneralOptions{
		LogLevel: ptr.Clone(o.LogLevel),
		Silent:   ptr.Clone(o.Silent),
	}
}

func (origin *GeneralOptions) Merge(overrides *GeneralOptions) *GeneralOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	return &GeneralOptions{
		LogLevel: ptr.CloneOr(overrides.LogLevel, origin.LogLevel),
		Silent:   ptr.CloneOr(overrides.Silent, origin.Silent),
	}
}

// ┌────────────────┐
// │ SERVER OPTIONS │
// └────────────────┘
var _ merger[*ServerOptions] = (*ServerOptions)(nil)

type ServerOptions struct {
	ListenAddr *net.TCPAddr   `toml:"listen-addr"`
	Timeout    *time.Duration `toml:"timeout"`
}

func (o *ServerOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'server' must be table type")
	}

	if p := findFrom(m, "listen-addr", parseStringFn(checkHostPort), &err); isOk(p, err) {
		o.ListenAddr = ptr.FromValue(MustParseTCPAddr(*p))
	}

	if p := findFrom(m, "timeout", parseIntFn[uint16](checkUint16), &err); isOk(p, err) {
		o.Timeout = ptr.FromValue(time.Duration(*p) * time.Millisecond)
	}

	return err
}

func (o *ServerOptions) Clone() *ServerOptions {
	if o == nil {
		return nil
	}

	return &ServerOptions{
		ListenAddr: cloneTCPAddr(o.ListenAddr),
		Timeout:    ptr.Clone(o.Timeout),
	}
}

func (origin *ServerOptions) Merge(overrides *ServerOptions) *ServerOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	addr := overrides.ListenAddr
	if addr == nil {
		addr = origin.ListenAddr
	}

	return &ServerOptions{
		ListenAddr: cloneTCPAddr(addr),
		Timeout:    ptr.CloneOr(overrides.Timeout, origin.Timeout),
	}
}

// ┌─────────────┐
// │ DNS OPTIONS │
// └─────────────┘
var _ merger[*DNSOptions] = (*DNSOptions)(nil)

type (
	DNSModeType  int
	DNSQueryType int
)

var (
	availableDNSModes   = []string{"system", "udp", "https"}
	availableDNSQueries = []string{"ipv4", "ipv6", "all"}
)

const (
	DNSModeSystem DNSModeType = iota
	DNSModeUDP
	DNSModeHTTPS
)

const (
	DNSQueryIPv4 DNSQueryType = iota
	DNSQueryIPv6
	DNSQueryAll
)

func (t DNSModeType) String() string {
	return availableDNSModes[t]
}

func (t DNSQueryType) String() string {
	return availableDNSQueries[t]
}

type DNSOptions struct {
	Mode        *DNSModeType  `toml:"mode"`
	Addr        *net.TCPAddr  `toml:"addr"`
	HTTPSURL    *string       `toml:"https-url"`
	QType       *DNSQueryType `toml:"qtype"`
	CacheShards *uint8        `toml:"cache-shards"`
	Coalesce    *bool         `toml:"coalesce"`
}

func (o *DNSOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'dns' must be table type")
	}

	if p := findFrom(m, "mode", parseStringFn(checkDNSMode), &err); isOk(p, err) {
		o.Mode = ptr.FromValue(MustParseDNSModeType(*p))
	}

	if p := findFrom(m, "addr", parseStringFn(checkHostPort), &err); isOk(p, err) {
		o.Addr = ptr.FromValue(MustParseTCPAddr(*p))
	}

	o.HTTPSURL = findFrom(m, "https-url", parseStringFn(checkHTTPSEndpoint), &err)

	if p := findFrom(m, "qtype", parseStringFn(checkDNSQueryType), &err); isOk(p, err) {
		o.QType = ptr.FromValue(MustParseDNSQueryType(*p))
	}

	o.CacheShards = findFrom(m, "cache-shards", parseIntFn[uint8](checkUint8NonZero), &err)
	o.Coalesce = findFrom(m, "coalesce", parseBoolFn(), &err)

	return err
}

func (o *DNSOptions) Clone() *DNSOptions {
	if o == nil {
		return nil
	}

	return &DNSOptions{
		Mode:        ptr.Clone(o.Mode),
		Addr:        cloneTCPAddr(o.Addr),
		HTTPSURL:    ptr.Clone(o.HTTPSURL),
		QType:       ptr.Clone(o.QType),
		CacheShards: ptr.Clone(o.CacheShards),
		Coalesce:    ptr.Clone(o.Coalesce),
	}
}

func (origin *DNSOptions) Merge(overrides *DNSOptions) *DNSOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	addr := overrides.Addr
	if addr == nil {
		addr = origin.Addr
	}

	return &DNSOptions{
		Mode:        ptr.CloneOr(overrides.Mode, origin.Mode),
		Addr:        cloneTCPAddr(addr),
		HTTPSURL:    ptr.CloneOr(overrides.HTTPSURL, origin.HTTPSURL),
		QType:       ptr.CloneOr(overrides.QType, origin.QType),
		CacheShards: ptr.CloneOr(overrides.CacheShards, origin.CacheShards),
		Coalesce:    ptr.CloneOr(overrides.Coalesce, origin.Coalesce),
	}
}
