package config

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommand_Flags(t *testing.T) {
	tcs := []struct {
		name   string
		args   []string
		assert func(t *testing.T, cfg *Config)
	}{
		{
			name: "default values (no flags)",
			args: []string{"proxyd", "--clean"},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, NewConfig(), cfg)
			},
		},
		{
			name: "all flags set with custom values",
			args: []string{
				"proxyd",
				"--clean",
				"--log-level", "debug",
				"--silent",
				"--listen-addr", "127.0.0.1:9090",
				"--timeout", "5000",
				"--dns-mode", "udp",
				"--dns-addr", "1.1.1.1:53",
				"--dns-https-url", "https://cloudflare-dns.com/dns-query",
				"--dns-qtype", "all",
				"--dns-cache-shards", "4",
				"--dns-coalesce",
			},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, zerolog.DebugLevel, *cfg.General.LogLevel)
				assert.True(t, *cfg.General.Silent)
				assert.Equal(t, "127.0.0.1:9090", cfg.Server.ListenAddr.String())
				assert.Equal(t, 5000*time.Millisecond, *cfg.Server.Timeout)
				assert.Equal(t, DNSModeUDP, *cfg.DNS.Mode)
				assert.Equal(t, "1.1.1.1:53", cfg.DNS.Addr.String())
				assert.Equal(t, "https://cloudflare-dns.com/dns-query", *cfg.DNS.HTTPSURL)
				assert.Equal(t, DNSQueryAll, *cfg.DNS.QType)
				assert.Equal(t, uint8(4), *cfg.DNS.CacheShards)
				assert.True(t, *cfg.DNS.Coalesce)
			},
		},
		{
			name: "ipv6 listen addr",
			args: []string{"proxyd", "--clean", "--listen-addr", "[::1]:1080"},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "[::1]:1080", cfg.Server.ListenAddr.String())
				assert.True(t, cfg.Server.ListenAddr.IP.Equal(net.ParseIP("::1")))
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var capturedCfg *Config
			runFunc := func(ctx context.Context, configDir string, cfg *Config) error {
				capturedCfg = cfg
				return nil
			}

			cmd := CreateCommand(runFunc, "v0.0.0", "commit", "build")
			err := cmd.Run(context.Background(), tc.args)
			require.NoError(t, err)
			require.NotNil(t, capturedCfg, "Run function was not called")

			tc.assert(t, capturedCfg)
		})
	}
}

func TestCreateCommand_InvalidFlags(t *testing.T) {
	tcs := []struct {
		name string
		args []string
	}{
		{"log level", []string{"proxyd", "--clean", "--log-level", "loud"}},
		{"listen addr", []string{"proxyd", "--clean", "--listen-addr", "localhost"}},
		{"dns mode", []string{"proxyd", "--clean", "--dns-mode", "dot"}},
		{"zero shards", []string{"proxyd", "--clean", "--dns-cache-shards", "0"}},
		{"timeout overflow", []string{"proxyd", "--clean", "--timeout", "65536"}},
		{"missing config file", []string{"proxyd", "--config", "/nonexistent/proxyd.toml"}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			runFunc := func(ctx context.Context, configDir string, cfg *Config) error {
				called = true
				return nil
			}

			cmd := CreateCommand(runFunc, "v0.0.0", "commit", "build")
			err := cmd.Run(context.Background(), tc.args)
			assert.Error(t, err)
			assert.False(t, called)
		})
	}
}

func TestCreateCommand_OverrideTOML(t *testing.T) {
	tomlContent := `
[general]
    log-level = "debug"
    silent = true

[server]
    listen-addr = "127.0.0.1:8080"
    timeout = 1000

[dns]
    mode = "https"
    addr = "8.8.8.8:53"
    https-url = "https://1.1.1.1/dns-query"
    qtype = "ipv4"
    cache-shards = 64
    coalesce = true
`
	configPath := filepath.Join(t.TempDir(), configFilename)
	require.NoError(t, os.WriteFile(configPath, []byte(tomlContent), 0o644))

	var capturedCfg *Config
	var capturedDir string
	runFunc := func(ctx context.Context, configDir string, cfg *Config) error {
		capturedCfg = cfg
		capturedDir = configDir
		return nil
	}

	cmd := CreateCommand(runFunc, "v0.0.0", "commit", "build")

	args := []string{
		"proxyd",
		"--config", configPath,
		"--log-level", "error",
		"--silent=false",
		"--timeout", "2000",
		"--dns-mode", "udp",
		"--dns-coalesce=false",
	}

	err := cmd.Run(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, capturedCfg)
	assert.NotEmpty(t, capturedDir)

	// Flags win over the file.
	assert.Equal(t, zerolog.ErrorLevel, *capturedCfg.General.LogLevel)
	assert.False(t, *capturedCfg.General.Silent)
	assert.Equal(t, 2000*time.Millisecond, *capturedCfg.Server.Timeout)
	assert.Equal(t, DNSModeUDP, *capturedCfg.DNS.Mode)
	assert.False(t, *capturedCfg.DNS.Coalesce)

	// Values only present in the file survive.
	assert.Equal(t, "127.0.0.1:8080", capturedCfg.Server.ListenAddr.String())
	assert.Equal(t, "https://1.1.1.1/dns-query", *capturedCfg.DNS.HTTPSURL)
	assert.Equal(t, uint8(64), *capturedCfg.DNS.CacheShards)
}

func TestCreateCommand_Version(t *testing.T) {
	called := false
	runFunc := func(ctx context.Context, configDir string, cfg *Config) error {
		called = true
		return nil
	}

	cmd := CreateCommand(runFunc, "v0.0.0", "commit", "build")
	require.NoError(t, cmd.Run(context.Background(), []string{"proxyd", "--version"}))
	assert.False(t, called)
}
