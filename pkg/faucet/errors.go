package faucet

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

var (
	// ErrFaucetExists is returned when creating a spec that is already on the ledger.
	ErrFaucetExists = errors.New("faucet already exists")
	// ErrPayerUnderfunded is returned when the creator or funder cannot cover
	// the transfer and the fee.
	ErrPayerUnderfunded = errors.New("payer balance too low")
)

// ClassifyFunding marks a rejected create or fund transaction. op names the
// operation in the message. Rejections with no faucet meaning are wrapped
// unchanged.
func ClassifyFunding(op string, payer solana.PublicKey, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	rej, ok := ledger.AsRejection(err)
	if !ok {
		return errors.Wrap(err, op)
	}

	var class error
	switch {
	case rej.Code == ledger.CodeAccountExists:
		class = ErrFaucetExists
	case rej.Code == ledger.CodeFeePayerUnderfunded:
		class = ErrPayerUnderfunded
	case rej.Code == ledger.CodeInsufficientFunds && rej.Account == payer:
		class = ErrPayerUnderfunded
	case rej.Code == ledger.CodeAccountNotFound:
		class = ErrSpecNotFound
	default:
		return errors.Wrap(err, op)
	}
	return errors.Wrapf(errors.Mark(err, class), "%s: %s", op, class.Error())
}
