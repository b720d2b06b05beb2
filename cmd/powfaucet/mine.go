package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/powfaucet/internal/keystore"
	"github.com/Amr-9/powfaucet/pkg/claim"
	"github.com/Amr-9/powfaucet/pkg/generator"
	"github.com/Amr-9/powfaucet/pkg/generator/cpu"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger/httpapi"
	"github.com/Amr-9/powfaucet/pkg/miner"
)

const updateRate = 100 * time.Millisecond

func mineCommand() *cli.Command {
	return &cli.Command{
		Name:  "mine",
		Usage: "Mine keypairs and claim faucet rewards until a target is reached",
		Flags: append(specFlags(),
			&cli.Uint64Flag{
				Name:    "target-lamports",
				Aliases: []string{"t"},
				Usage:   "stop after receiving this many lamports",
				Value:   miner.DefaultTargetLamports,
			},
			&cli.UintFlag{Name: "min-difficulty", Usage: "refuse faucets below this difficulty"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "search goroutines (default: all cores)"},
			&cli.Uint64Flag{Name: "max-retries", Usage: "resubmissions of one claim"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "save every mined keypair into this directory"},
			&cli.BoolFlag{Name: "seal", Usage: "seal saved keypairs with a passphrase"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address"},
		),
		Action: mine,
	}
}

func mine(c *cli.Context) error {
	difficulty, reward, err := spec(c)
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	payer, err := e.payer()
	if err != nil {
		return err
	}

	cfg := miner.DefaultConfig()
	cfg.Workers = e.cfg.Workers
	if w := c.Int("workers"); w > 0 {
		cfg.Workers = w
	}
	cfg.MaxRetries = e.cfg.MaxRetries
	if r := c.Uint64("max-retries"); r > 0 {
		cfg.MaxRetries = r
	}
	minDifficulty := e.cfg.MinDifficulty
	if c.IsSet("min-difficulty") {
		minDifficulty = uint8(c.Uint("min-difficulty"))
	}
	metricsAddr := e.cfg.MetricsAddr
	if c.IsSet("metrics-addr") {
		metricsAddr = c.String("metrics-addr")
	}

	save, err := e.keySaver(c.String("out"), c.Bool("seal"))
	if err != nil {
		return err
	}

	if err := raiseMiningPriority(); err != nil {
		e.logger.Debug().Err(err).Msg("could not raise process priority")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// console output comes from the progress loop and the miner callbacks
	var mu sync.Mutex
	gen := cpu.NewCPUGenerator(cfg.Workers)
	m := miner.New(e.ledger, payer, gen,
		miner.WithConfig(cfg),
		miner.WithLogger(e.logger),
		miner.WithMetrics(miner.NewMetrics(reg)),
		miner.OnFound(func(r generator.Result) {
			savedTo, err := save(r.Keypair)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.console.PrintWarning("save failed: %v", err)
			}
			e.console.PrintFound(r, savedTo)
		}),
		miner.OnClaimed(func(r *claim.Result) {
			mu.Lock()
			defer mu.Unlock()
			e.console.PrintClaim(r)
		}),
	)

	req := miner.Request{
		Difficulty:     difficulty,
		Reward:         reward,
		TargetLamports: c.Uint64("target-lamports"),
		MinDifficulty:  minDifficulty,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.console.PrintSearchInfo(difficulty, reward, req.TargetLamports)
	start := time.Now()

	var report *miner.Report
	var mineErr error
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		report, mineErr = m.Mine(gctx, req)
		return nil
	})
	if metricsAddr != "" {
		g.Go(func() error {
			return httpapi.ServeMetrics(gctx, metricsAddr, reg, e.logger)
		})
	}
	g.Go(func() error {
		showProgress(gctx, e, m, solana.ExpectedAttempts(difficulty), &mu)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	e.console.ClearLine()
	e.console.PrintSummary(len(report.Claims), report.Received, report.Attempts, time.Since(start))

	switch {
	case mineErr == nil:
		return nil
	case errors.Is(mineErr, context.Canceled):
		e.console.PrintWarning("Cancelled")
		return nil
	case errors.Is(mineErr, claim.ErrFaucetDepleted):
		e.console.PrintWarning("Faucet is empty")
		return nil
	}
	return mineErr
}

// showProgress redraws the progress bar until ctx is done. Only terminals
// get a progress bar; logs already record each find.
func showProgress(ctx context.Context, e *env, m *miner.Miner, expected float64, mu *sync.Mutex) {
	if !e.tty {
		return
	}
	ticker := time.NewTicker(updateRate)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			e.console.PrintProgress(m.Stats(), expected, frame)
			mu.Unlock()
			frame++
		}
	}
}

// keySaver returns the function that stores mined keypairs. With no
// directory it keeps nothing.
func (e *env) keySaver(dir string, seal bool) (func(*solana.Keypair) (string, error), error) {
	if dir == "" {
		return func(*solana.Keypair) (string, error) { return "", nil }, nil
	}
	if err := keystore.EnsureDir(dir); err != nil {
		return nil, err
	}

	var pass []byte
	if seal {
		var err error
		if pass, err = e.prompter.Passphrase("Passphrase for mined keys", true); err != nil {
			return nil, err
		}
	}

	return func(kp *solana.Keypair) (string, error) {
		path := filepath.Join(dir, kp.PublicKey().String()+".json")
		if seal {
			return path, keystore.WriteSealed(path, kp, pass)
		}
		return path, keystore.Write(path, kp)
	}, nil
}
