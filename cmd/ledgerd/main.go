// Command ledgerd serves a development ledger with the faucet program over
// HTTP.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/powfaucet/internal/config"
	"github.com/Amr-9/powfaucet/internal/logger"
	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/ledger"
	"github.com/Amr-9/powfaucet/pkg/ledger/devnet"
	"github.com/Amr-9/powfaucet/pkg/ledger/httpapi"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := httpapi.DefaultConfig()
	return &cli.App{
		Name:  "ledgerd",
		Usage: "Development ledger for proof-of-work faucets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file (default ~/.config/powfaucet/config.yml)"},
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "ledger-dir", Usage: "database directory"},
			&cli.BoolFlag{Name: "memory", Usage: "keep the ledger in memory only"},
			&cli.StringFlag{Name: "genesis-hash", Usage: "genesis hash of a new ledger (random by default)"},
			&cli.Float64Flag{Name: "tps", Usage: "transactions per second before 429", Value: defaults.TransactionsPerSecond},
			&cli.IntFlag{Name: "burst", Usage: "transaction burst size", Value: defaults.Burst},
			&cli.Float64Flag{Name: "max-airdrop", Usage: "largest airdrop in SOL", Value: float64(defaults.MaxAirdrop) / float64(ledger.LamportsPerSOL)},
			&cli.StringFlag{Name: "metrics-addr", Usage: "also serve /metrics on a separate address"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), map[string]interface{}{
		config.KeyListenAddr:  c.String("listen"),
		config.KeyLedgerDir:   c.String("ledger-dir"),
		config.KeyGenesisHash: c.String("genesis-hash"),
		config.KeyLogLevel:    c.String("log-level"),
		config.KeyMetricsAddr: c.String("metrics-addr"),
	})
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{Service: "ledgerd", Level: cfg.LogLevel})

	opts := []devnet.Option{
		devnet.WithProgram(faucet.NewProgram(log)),
		devnet.WithLogger(log),
	}
	if cfg.GenesisHash != "" {
		opts = append(opts, devnet.WithGenesisHash(cfg.GenesisHash))
	}

	var l *devnet.Ledger
	if c.Bool("memory") {
		l, err = devnet.OpenMemory(opts...)
	} else {
		if err := os.MkdirAll(cfg.LedgerDir, 0o700); err != nil {
			return err
		}
		l, err = devnet.Open(cfg.LedgerDir, opts...)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			log.Error().Err(err).Msg("close ledger")
		}
	}()

	genesis, err := l.GenesisHash(c.Context)
	if err != nil {
		return err
	}
	log.Info().Str("genesis", genesis).Str("dir", cfg.LedgerDir).Bool("memory", c.Bool("memory")).Msg("ledger ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := httpapi.New(l, httpapi.Config{
		TransactionsPerSecond: c.Float64("tps"),
		Burst:                 c.Int("burst"),
		MaxAirdrop:            faucet.LamportsFromSOL(c.Float64("max-airdrop")),
	}, log, reg, reg)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, cfg.ListenAddr)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return httpapi.ServeMetrics(gctx, cfg.MetricsAddr, reg, log)
		})
	}
	return g.Wait()
}
