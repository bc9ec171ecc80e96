package config

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/proxyd/proxyd/internal/ptr"
	"github.com/urfave/cli/v3"
)

const configFilename = "proxyd.toml"

// CreateCommand builds the root command. runFunc receives the final merged
// configuration (defaults < toml file < flags) and the path of the loaded
// config file, which is empty when no file was used.
func CreateCommand(
	runFunc func(ctx context.Context, configDir string, cfg *Config) error,
	version string,
	commit string,
	build string,
) *cli.Command {
	cmd := &cli.Command{
		Name:        "proxyd",
		Usage:       "forwarding HTTP proxy with a shared DNS cache",
		Description: "Accepts proxy-form HTTP requests and relays them to origin servers on port 80",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name: "clean",
				Usage: `
				If set, all configuration files will be ignored`,
				OnlyOnce: true,
			},

			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage: `
				Custom location of the config file to load. Options given through the command
				line flags will override the options set in this file.`,
				OnlyOnce: true,
				Sources:  cli.EnvVars("PROXYD_CONFIG"),
			},

			&cli.StringFlag{
				Name: "log-level",
				Usage: `
				Set log level; one of trace, debug, info, warn, error (default: "info")`,
				OnlyOnce:  true,
				Validator: checkLogLevel,
			},

			&cli.BoolFlag{
				Name: "silent",
				Usage: `
				Do not show the banner at start up`,
				OnlyOnce: true,
			},

			&cli.StringFlag{
				Name: "listen-addr",
				Usage: `
				IP address and port to listen on (default: "127.0.0.1:8080")`,
				OnlyOnce:  true,
				Validator: checkHostPort,
			},

			&cli.IntFlag{
				Name: "timeout",
				Usage: `
				Timeout for upstream connection attempts in milliseconds.
				No effect when the value is 0 (default: 0, max: 65535)`,
				OnlyOnce:  true,
				Validator: checkUint16,
			},

			&cli.StringFlag{
				Name: "dns-mode",
				Usage: `
				Resolver used on cache misses; one of system, udp, https (default: "system")`,
				OnlyOnce:  true,
				Validator: checkDNSMode,
			},

			&cli.StringFlag{
				Name: "dns-addr",
				Usage: `
				Upstream dns server for the 'udp' mode (default: "8.8.8.8:53")`,
				OnlyOnce:  true,
				Validator: checkHostPort,
			},

			&cli.StringFlag{
				Name: "dns-https-url",
				Usage: `
				Endpoint for the 'https' mode (default: "https://dns.google/dns-query")`,
				OnlyOnce:  true,
				Validator: checkHTTPSEndpoint,
			},

			&cli.StringFlag{
				Name: "dns-qtype",
				Usage: `
				Record types queried in the 'udp' and 'https' modes; one of ipv4, ipv6, all (default: "ipv4")`,
				OnlyOnce:  true,
				Validator: checkDNSQueryType,
			},

			&cli.IntFlag{
				Name: "dns-cache-shards",
				Usage: `
				Number of shards of the dns cache (default: 32, max: 255)`,
				OnlyOnce:  true,
				Validator: checkUint8NonZero,
			},

			&cli.BoolFlag{
				Name: "dns-coalesce",
				Usage: `
				Share a single lookup between concurrent misses on the same host`,
				OnlyOnce: true,
			},

			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"v"},
				Usage: `
				Print version and exit`,
				OnlyOnce: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("version") {
				fmt.Printf("proxyd %s %s (%s)\n", version, commit, build)
				return nil
			}

			var tomlCfg *Config
			var configDir string
			if !cmd.Bool("clean") {
				lookupDirs := []string{
					path.Join(string(os.PathSeparator), "etc", configFilename),
					path.Join(os.Getenv("XDG_CONFIG_HOME"), "proxyd", configFilename),
					path.Join(os.Getenv("HOME"), ".config", "proxyd", configFilename),
				}

				c, err := searchTomlFile(cmd.String("config"), lookupDirs)
				if err != nil {
					return err
				}

				if c != "" {
					configDir = c
					tomlCfg, err = fromTomlFile(c)
					if err != nil {
						return fmt.Errorf("error parsing toml config: %w", err)
					}
				}
			}

			finalCfg := NewConfig().Merge(tomlCfg).Merge(parseConfigFromArgs(cmd))

			home := os.Getenv("HOME")
			if home != "" {
				configDir = strings.Replace(configDir, home, "~", 1)
			}

			return runFunc(ctx, configDir, finalCfg)
		},
	}

	return cmd
}

// parseConfigFromArgs returns a Config holding only the flags explicitly set
// on the command line, so that unset flags never shadow toml values.
func parseConfigFromArgs(cmd *cli.Command) *Config {
	cfg := &Config{
		General: &GeneralOptions{},
		Server:  &ServerOptions{},
		DNS:     &DNSOptions{},
	}

	if cmd.IsSet("log-level") {
		cfg.General.LogLevel = ptr.FromValue(MustParseLogLevel(cmd.String("log-level")))
	}

	if cmd.IsSet("silent") {
		cfg.General.Silent = ptr.FromValue(cmd.Bool("silent"))
	}

	if cmd.IsSet("listen-addr") {
		cfg.Server.ListenAddr = ptr.FromValue(MustParseTCPAddr(cmd.String("listen-addr")))
	}

	if cmd.IsSet("timeout") {
		cfg.Server.Timeout = ptr.FromValue(time.Duration(cmd.Int("timeout")) * time.Millisecond)
	}

	if cmd.IsSet("dns-mode") {
		cfg.DNS.Mode = ptr.FromValue(MustParseDNSModeType(cmd.String("dns-mode")))
	}

	if cmd.IsSet("dns-addr") {
		cfg.DNS.Addr = ptr.FromValue(MustParseTCPAddr(cmd.String("dns-addr")))
	}

	if cmd.IsSet("dns-https-url") {
		cfg.DNS.HTTPSURL = ptr.FromValue(cmd.String("dns-https-url"))
	}

	if cmd.IsSet("dns-qtype") {
		cfg.DNS.QType = ptr.FromValue(MustParseDNSQueryType(cmd.String("dns-qtype")))
	}

	if cmd.IsSet("dns-cache-shards") {
		cfg.DNS.CacheShards = ptr.FromValue(uint8(cmd.Int("dns-cache-shards")))
	}

	if cmd.IsSet("dns-coalesce") {
		cfg.DNS.Coalesce = ptr.FromValue(cmd.Bool("dns-coalesce"))
	}

	return cfg
}
