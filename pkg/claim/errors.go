package claim

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

var (
	// ErrAlreadyClaimed means a receipt exists for the winner at this
	// difficulty. The key is spent; mine another.
	ErrAlreadyClaimed = errors.New("proof already claimed")

	// ErrFaucetDepleted means the source holds less than one reward.
	ErrFaucetDepleted = errors.New("faucet depleted")

	// ErrUnauthorizedSigner means the ledger did not accept the winner's
	// authorization: a missing or invalid signature, or an address that does
	// not meet the difficulty.
	ErrUnauthorizedSigner = errors.New("unauthorized signer")

	// ErrFeePayerRejected means the fee payer's own signature was missing or
	// invalid. The proof is still unspent.
	ErrFeePayerRejected = errors.New("fee payer signature rejected")

	// ErrTransientSubmission covers network failures, congestion and an
	// underfunded fee payer. The same transaction may be retried.
	ErrTransientSubmission = errors.New("transient submission failure")

	// ErrSpecNotFound means no faucet exists for the (difficulty, reward) pair.
	ErrSpecNotFound = faucet.ErrSpecNotFound
)

// Classify marks a submission error with its class. winner is the mined key
// the claim was made for; signature failures on any other account are blamed
// on the fee payer. Context errors pass through unchanged so callers can tell
// cancellation from failure.
func Classify(err error, winner solana.PublicKey) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	rej, ok := ledger.AsRejection(err)
	if !ok {
		return errors.Mark(errors.Wrap(err, "submit claim"), ErrTransientSubmission)
	}

	var class error
	switch rej.Code {
	case ledger.CodeAccountExists:
		class = ErrAlreadyClaimed
	case ledger.CodeInsufficientFunds:
		class = ErrFaucetDepleted
	case ledger.CodeMissingSignature, ledger.CodeInvalidSignature:
		class = ErrUnauthorizedSigner
		if rej.Account != winner {
			class = ErrFeePayerRejected
		}
	case ledger.CodeDifficultyNotMet:
		class = ErrUnauthorizedSigner
	case ledger.CodeAccountNotFound:
		class = ErrSpecNotFound
	default:
		class = ErrTransientSubmission
	}
	return errors.Wrap(errors.Mark(err, class), class.Error())
}

// IsRetryable reports whether the same transaction may be submitted again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientSubmission)
}

// IsTerminal reports whether err ends a mining run for this faucet.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrFaucetDepleted) ||
		errors.Is(err, ErrUnauthorizedSigner) ||
		errors.Is(err, ErrFeePayerRejected) ||
		errors.Is(err, ErrSpecNotFound)
}
