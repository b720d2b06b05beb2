// Command powfaucet creates, funds and inspects proof-of-work faucets, and
// mines vanity keypairs to claim their rewards.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.4"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "powfaucet",
		Usage:   "Proof-of-work faucet client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file (default ~/.config/powfaucet/config.yml)",
			},
			&cli.StringFlag{
				Name:    "keypair",
				Aliases: []string{"k"},
				Usage:   "fee payer keypair file",
			},
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "ledger endpoint; \"local\", \"dev\" and \"main\" are shortcuts, file:// opens a ledger directory",
			},
			&cli.StringFlag{
				Name:    "commitment",
				Aliases: []string{"c"},
				Usage:   "commitment level: processed, confirmed or finalized",
			},
			&cli.StringFlag{
				Name:  "genesis-hash",
				Usage: "refuse to run against a ledger with a different genesis hash",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			createCommand(),
			listCommand(),
			getFaucetCommand(),
			fundCommand(),
			mineCommand(),
		},
	}
}
