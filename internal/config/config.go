package config

import (
	"fmt"
	"time"

	"github.com/proxyd/proxyd/internal/ptr"
	"github.com/rs/zerolog"
)

const (
	defaultListenAddr  = "127.0.0.1:8080"
	defaultDNSAddr     = "8.8.8.8:53"
	defaultDNSHTTPSURL = "https://dns.google/dns-query"
	defaultCacheShards = 32
)

var _ merger[*Config] = (*Config)(nil)

type Config struct {
	General *GeneralOptions `toml:"general"`
	Server  *ServerOptions  `toml:"server"`
	DNS     *DNSOptions     `toml:"dns"`
}

// NewConfig returns a Config with every field set to its default value.
func NewConfig() *Config {
	listenAddr := MustParseTCPAddr(defaultListenAddr)
	dnsAddr := MustParseTCPAddr(defaultDNSAddr)

	return &Config{
		General: &GeneralOptions{
			LogLevel: ptr.FromValue(zerolog.InfoLevel),
			Silent:   ptr.FromValue(false),
		},
		Server: &ServerOptions{
			ListenAddr: &listenAddr,
			Timeout:    ptr.FromValue(time.Duration(0)),
		},
		DNS: &DNSOptions{
			Mode:        ptr.FromValue(DNSModeSystem),
			Addr:        &dnsAddr,
			HTTPSURL:    ptr.FromValue(defaultDNSHTTPSURL),
			QType:       ptr.FromValue(DNSQueryIPv4),
			CacheShards: ptr.FromValue(uint8(defaultCacheShards)),
			Coalesce:    ptr.FromValue(false),
		},
	}
}

func (c *Config) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("config must be table type")
	}

	c.General = findStructFrom[GeneralOptions](m, "general", &err)
	c.Server = findStructFrom[ServerOptions](m, "server", &err)
	c.DNS = findStructFrom[DNSOptions](m, "dns", &err)

	return err
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	return &Config{
		General: c.General.Clone(),
		Server:  c.Server.Clone(),
		DNS:     c.DNS.Clone(),
	}
}

// Merge returns a new Config where every non-nil field of overrides wins over
// the receiver's value.
func (origin *Config) Merge(overrides *Config) *Config {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	return &Config{
		General: origin.General.Merge(overrides.General),
		Server:  origin.Server.Merge(overrides.Server),
		DNS:     origin.DNS.Merge(overrides.DNS),
	}
}
