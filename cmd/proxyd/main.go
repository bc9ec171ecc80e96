package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/proxyd/proxyd/internal/config"
	"github.com/proxyd/proxyd/internal/dns"
	"github.com/proxyd/proxyd/internal/logging"
	"github.com/proxyd/proxyd/internal/proxy"
	"github.com/proxyd/proxyd/version"
	"github.com/rs/zerolog"
)

func main() {
	cmd := config.CreateCommand(runApp, version.Version, version.Commit, version.Build)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
	)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func runApp(ctx context.Context, configDir string, cfg *config.Config) error {
	if !*cfg.General.Silent {
		printBanner(cfg)
	}

	logger := logging.NewLogger(*cfg.General.LogLevel)
	mainLogger := logging.WithScope(logger, "main")

	if configDir != "" {
		mainLogger.Info().Msgf("config file loaded from %s", configDir)
	}

	lookuper := createLookuper(logger, cfg)
	mainLogger.Info().Msgf("dns lookups through %s", lookuper.Info())

	cache := dns.NewCache(
		logging.WithScope(logger, "dns"),
		lookuper,
		dns.CacheAttrs{
			NumOfShards: *cfg.DNS.CacheShards,
			Coalesce:    *cfg.DNS.Coalesce,
		},
	)

	srv := createServer(logger, cfg, cache)
	if err := srv.ListenAndServe(ctx); err != nil {
		logging.ErrorUnwrapped(&mainLogger, "proxy server stopped", err)
		return err
	}

	mainLogger.Info().Msg("shutting down")

	return nil
}

func createLookuper(logger zerolog.Logger, cfg *config.Config) dns.Lookuper {
	qTypes := dns.QueryTypes(*cfg.DNS.QType)

	switch *cfg.DNS.Mode {
	case config.DNSModeUDP:
		return dns.NewPlainLookuper(logging.WithScope(logger, "dns(udp)"), cfg.DNS.Addr, qTypes)
	case config.DNSModeHTTPS:
		return dns.NewHTTPSLookuper(
			logging.WithScope(logger, "dns(https)"),
			*cfg.DNS.HTTPSURL,
			qTypes,
		)
	default:
		return dns.NewSystemLookuper(logging.WithScope(logger, "dns(system)"))
	}
}

func createServer(
	logger zerolog.Logger,
	cfg *config.Config,
	resolver proxy.Resolver,
) *proxy.Server {
	return proxy.NewServer(
		logging.WithScope(logger, "proxy"),
		resolver,
		&net.Dialer{},
		cfg.Server,
	)
}

func printBanner(cfg *config.Config) {
	const banner = `
 ____  ____   _____  ____   _ ____
|  _ \|  _ \ / _ \ \/ /\ \ / /  _ \
| |_) | |_) | | | \  /  \ V /| | | |
|  __/|  _ <| |_| /  \   | | | |_| |
|_|   |_| \_\\___/_/\_\  |_| |____/
`

	fmt.Print(banner)
	fmt.Printf("\n")
	fmt.Printf(" • LISTEN_ADDR : %s\n", cfg.Server.ListenAddr)
	fmt.Printf(" • DNS_MODE    : %s\n", cfg.DNS.Mode)
	fmt.Printf(" • DNS_COALESCE: %t\n", *cfg.DNS.Coalesce)
	fmt.Printf(" • LOG_LEVEL   : %s\n", cfg.General.LogLevel)
	fmt.Printf("\n")
	fmt.Printf("Press 'CTRL + c' to quit\n")
	fmt.Printf("\n")
}
