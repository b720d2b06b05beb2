package main

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/Amr-9/powfaucet/internal/config"
	"github.com/Amr-9/powfaucet/internal/keystore"
	"github.com/Amr-9/powfaucet/internal/logger"
	"github.com/Amr-9/powfaucet/internal/ui"
	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
	"github.com/Amr-9/powfaucet/pkg/ledger/client"
	"github.com/Amr-9/powfaucet/pkg/ledger/devnet"
)

// env is what every command works with.
type env struct {
	cfg      *config.Config
	logger   zerolog.Logger
	console  *ui.Console
	tty      bool
	prompter *ui.Prompter
	ledger   ledger.Ledger
	close    func() error
}

// setup resolves configuration, connects to the ledger and checks its
// genesis hash.
func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"), map[string]interface{}{
		config.KeyKeypairPath: c.String("keypair"),
		config.KeyJSONRPCURL:  c.String("url"),
		config.KeyCommitment:  c.String("commitment"),
		config.KeyGenesisHash: c.String("genesis-hash"),
		config.KeyLogLevel:    c.String("log-level"),
	})
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{Service: "powfaucet", Level: cfg.LogLevel})
	color := term.IsTerminal(int(os.Stdout.Fd()))
	console := ui.NewConsole(os.Stdout, color)

	l, closer, err := openLedger(cfg.JSONRPCURL, log)
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg:      cfg,
		logger:   log,
		console:  console,
		tty:      color,
		prompter: ui.StdinPrompter(console),
		ledger:   l,
		close:    closer,
	}

	if err := e.checkGenesis(c.Context); err != nil {
		_ = e.close()
		return nil, err
	}
	log.Debug().Str("url", cfg.JSONRPCURL).Str("commitment", cfg.Commitment).Msg("connected")
	return e, nil
}

// openLedger connects to an HTTP ledger, or opens a ledger directory
// in-process for file:// URLs.
func openLedger(url string, log zerolog.Logger) (ledger.Ledger, func() error, error) {
	if raw, ok := strings.CutPrefix(url, "file://"); ok {
		dir, err := config.ExpandHome(raw)
		if err != nil {
			return nil, nil, err
		}
		l, err := devnet.Open(dir, devnet.WithProgram(faucet.NewProgram(log)), devnet.WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	}
	return client.New(url), func() error { return nil }, nil
}

func (e *env) checkGenesis(ctx context.Context) error {
	hash, err := e.ledger.GenesisHash(ctx)
	if err != nil {
		return errors.Wrapf(err, "fetch genesis hash from %s", e.cfg.JSONRPCURL)
	}
	if e.cfg.GenesisHash != "" && hash != e.cfg.GenesisHash {
		return errors.Newf("genesis hash %s does not match the configured %s", hash, e.cfg.GenesisHash)
	}
	return nil
}

// payer loads the fee payer, asking for the passphrase of a sealed file.
func (e *env) payer() (*solana.Keypair, error) {
	path := e.cfg.KeypairPath
	sealed, err := keystore.IsSealed(path)
	if err != nil {
		return nil, err
	}
	if !sealed {
		return keystore.Read(path)
	}
	pass, err := e.prompter.Passphrase("Passphrase for "+path, false)
	if err != nil {
		return nil, err
	}
	return keystore.ReadSealed(path, pass)
}

// spec parses the --difficulty and --reward flags shared by most commands.
func spec(c *cli.Context) (uint8, uint64, error) {
	d := c.Uint("difficulty")
	if d > solana.MaxDifficulty {
		return 0, 0, errors.Newf("difficulty %d exceeds %d", d, solana.MaxDifficulty)
	}
	reward := faucet.LamportsFromSOL(c.Float64("reward"))
	if reward == 0 {
		return 0, 0, errors.New("reward must be positive")
	}
	return uint8(d), reward, nil
}

func specFlags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{
			Name:     "difficulty",
			Aliases:  []string{"d"},
			Usage:    "number of leading 'A' characters a winning address needs",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     "reward",
			Usage:    "reward per claim in SOL",
			Required: true,
		},
	}
}
