// Package claim turns a mined keypair into a reward: it derives the faucet,
// source and receipt addresses, builds one atomic claim transaction signed by
// the fee payer and the winning key, submits it and classifies the outcome.
package claim

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

// Result describes a committed claim.
type Result struct {
	Signature  string           `json:"signature"`
	Spec       solana.PublicKey `json:"spec"`
	Source     solana.PublicKey `json:"source"`
	Receipt    solana.PublicKey `json:"receipt"`
	Winner     solana.PublicKey `json:"winner"`
	Difficulty uint8            `json:"difficulty"`
	Amount     uint64           `json:"amount"`
}

// Claimer submits claims to a ledger.
type Claimer struct {
	ledger ledger.Ledger
	logger zerolog.Logger
}

// NewClaimer creates a Claimer.
func NewClaimer(l ledger.Ledger, logger zerolog.Logger) *Claimer {
	return &Claimer{
		ledger: l,
		logger: logger.With().Str("component", "claim").Logger(),
	}
}

// BuildTransaction prepares a claim paying reward to feePayer, signed by both
// feePayer and winner. The returned Result is filled in except for Signature.
func (c *Claimer) BuildTransaction(difficulty uint8, reward uint64, winner, feePayer *solana.Keypair) (*ledger.Transaction, *Result, error) {
	id, err := faucet.DeriveFaucetIdentity(difficulty, reward)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := faucet.DeriveReceiptIdentity(winner.PublicKey(), difficulty)
	if err != nil {
		return nil, nil, err
	}
	ix, err := faucet.NewClaimInstruction(feePayer.PublicKey(), winner.PublicKey(), difficulty, reward)
	if err != nil {
		return nil, nil, err
	}

	nonce, err := ledger.NewNonce()
	if err != nil {
		return nil, nil, err
	}
	tx := ledger.NewTransaction(feePayer.PublicKey(), nonce, ix)
	if err := tx.Sign(feePayer, winner); err != nil {
		return nil, nil, errors.Wrap(err, "sign claim")
	}

	return tx, &Result{
		Spec:       id.Spec,
		Source:     id.Source,
		Receipt:    receipt,
		Winner:     winner.PublicKey(),
		Difficulty: difficulty,
		Amount:     reward,
	}, nil
}

// Submit sends a prepared claim and classifies any failure.
func (c *Claimer) Submit(ctx context.Context, tx *ledger.Transaction) (string, error) {
	sig, err := c.ledger.SendTransaction(ctx, tx)
	if err != nil {
		return "", Classify(err, claimWinner(tx))
	}
	return sig, nil
}

// claimWinner returns the winner account of the first claim instruction in tx.
func claimWinner(tx *ledger.Transaction) solana.PublicKey {
	for _, ix := range tx.Message.Instructions {
		if ix.ProgramID != faucet.ProgramID || len(ix.Accounts) <= faucet.ClaimAccountWinner {
			continue
		}
		if tag, err := faucet.DecodeTag(ix.Data); err == nil && tag == faucet.TagClaim {
			return ix.Accounts[faucet.ClaimAccountWinner].PublicKey
		}
	}
	return solana.PublicKey{}
}

// Claim builds, signs and submits a claim in one step.
func (c *Claimer) Claim(ctx context.Context, difficulty uint8, reward uint64, winner, feePayer *solana.Keypair) (*Result, error) {
	tx, result, err := c.BuildTransaction(difficulty, reward, winner, feePayer)
	if err != nil {
		return nil, err
	}

	sig, err := c.Submit(ctx, tx)
	if err != nil {
		c.logger.Debug().Err(err).Str("address", result.Winner.String()).Uint8("difficulty", difficulty).Msg("claim rejected")
		return nil, err
	}
	result.Signature = sig

	c.logger.Info().Str("address", result.Winner.String()).Uint8("difficulty", difficulty).
		Str("reward", faucet.FormatSOL(reward)).Str("signature", sig).Msg("claim committed")
	return result, nil
}
