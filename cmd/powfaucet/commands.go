package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a proof-of-work faucet",
		Flags: append(specFlags(),
			&cli.Float64Flag{Name: "funding", Usage: "SOL to move into the new faucet"},
		),
		Action: func(c *cli.Context) error {
			difficulty, reward, err := spec(c)
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			id, err := faucet.DeriveFaucetIdentity(difficulty, reward)
			if err != nil {
				return err
			}
			if _, err := e.ledger.GetAccount(c.Context, id.Spec); err == nil {
				fmt.Fprintf(c.App.Writer, "Faucet already exists at %s\n", id.Source)
				return nil
			} else if !errors.Is(err, ledger.ErrAccountNotFound) {
				return err
			}

			payer, err := e.payer()
			if err != nil {
				return err
			}
			ix, err := faucet.NewCreateInstruction(payer.PublicKey(), difficulty, reward, faucet.LamportsFromSOL(c.Float64("funding")))
			if err != nil {
				return err
			}
			sig, err := e.send(c, "create faucet", payer, ix)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "Created proof of work faucet with difficulty %d and reward of %s SOL: %s\n",
				difficulty, faucet.FormatSOL(reward), sig)
			fmt.Fprintf(c.App.Writer, "Faucet spec address: %s\n", id.Spec)
			fmt.Fprintf(c.App.Writer, "Faucet address: %s\n", id.Source)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List every faucet on the ledger",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			faucets, err := faucet.NewDirectory(e.ledger, 0).List(c.Context)
			if err != nil {
				return err
			}
			if len(faucets) == 0 {
				fmt.Fprintln(c.App.Writer, "No faucets")
				return nil
			}
			for _, f := range faucets {
				e.console.PrintFaucet(f)
			}
			return nil
		},
	}
}

func getFaucetCommand() *cli.Command {
	return &cli.Command{
		Name:  "get-faucet",
		Usage: "Show a faucet's address and balance",
		Flags: specFlags(),
		Action: func(c *cli.Context) error {
			difficulty, reward, err := spec(c)
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			f, err := faucet.NewDirectory(e.ledger, 0).Get(c.Context, difficulty, reward)
			if errors.Is(err, faucet.ErrSpecNotFound) {
				id, derr := faucet.DeriveFaucetIdentity(difficulty, reward)
				if derr != nil {
					return derr
				}
				e.console.PrintWarning("faucet does not exist, please check your parameters")
				fmt.Fprintf(c.App.Writer, "Faucet address: %s\n", id.Source)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Faucet address: %s\n", f.Source)
			fmt.Fprintf(c.App.Writer, "Faucet balance: %s SOL\n", faucet.FormatSOL(f.Balance))
			return nil
		},
	}
}

func fundCommand() *cli.Command {
	return &cli.Command{
		Name:  "fund",
		Usage: "Move SOL from the fee payer into an existing faucet",
		Flags: append(specFlags(),
			&cli.Float64Flag{Name: "amount", Usage: "SOL to add", Required: true},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
		),
		Action: func(c *cli.Context) error {
			difficulty, reward, err := spec(c)
			if err != nil {
				return err
			}
			amount := faucet.LamportsFromSOL(c.Float64("amount"))
			if amount == 0 {
				return errors.New("amount must be positive")
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			f, err := faucet.NewDirectory(e.ledger, 0).Get(c.Context, difficulty, reward)
			if err != nil {
				return err
			}
			if !c.Bool("yes") && !e.prompter.Confirm(fmt.Sprintf("Send %s SOL to faucet %s?", faucet.FormatSOL(amount), f.Source)) {
				return nil
			}

			payer, err := e.payer()
			if err != nil {
				return err
			}
			ix, err := faucet.NewFundInstruction(payer.PublicKey(), difficulty, reward, amount)
			if err != nil {
				return err
			}
			sig, err := e.send(c, "fund faucet", payer, ix)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Funded faucet %s with %s SOL: %s\n", f.Source, faucet.FormatSOL(amount), sig)
			return nil
		},
	}
}

// send signs ix with payer and submits it. op names the command in errors.
func (e *env) send(c *cli.Context, op string, payer *solana.Keypair, ix ledger.Instruction) (string, error) {
	nonce, err := ledger.NewNonce()
	if err != nil {
		return "", err
	}
	tx := ledger.NewTransaction(payer.PublicKey(), nonce, ix)
	if err := tx.Sign(payer); err != nil {
		return "", err
	}
	sig, err := e.ledger.SendTransaction(c.Context, tx)
	if err != nil {
		return "", faucet.ClassifyFunding(op, payer.PublicKey(), err)
	}
	e.logger.Info().Str("signature", sig).Msg("transaction committed")
	return sig, nil
}
