package faucet

import (
	"github.com/rs/zerolog"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

// Program executes faucet instructions inside a ledger.
type Program struct {
	logger zerolog.Logger
}

var _ ledger.Program = (*Program)(nil)

// NewProgram creates the faucet program.
func NewProgram(logger zerolog.Logger) *Program {
	return &Program{logger: logger.With().Str("program", "faucet").Logger()}
}

// ID returns ProgramID.
func (p *Program) ID() solana.PublicKey {
	return ProgramID
}

// Execute dispatches on the instruction tag.
func (p *Program) Execute(ic ledger.InvokeContext, ix *ledger.Instruction) error {
	tag, err := DecodeTag(ix.Data)
	if err != nil {
		return ledger.Reject(ledger.CodeInvalidInstruction, ProgramID, "%v", err)
	}

	switch tag {
	case TagCreate:
		return p.create(ic, ix)
	case TagFund:
		return p.fund(ic, ix)
	case TagClaim:
		return p.claim(ic, ix)
	default:
		return ledger.Reject(ledger.CodeInvalidInstruction, ProgramID, "unknown instruction tag %d", tag)
	}
}

func (p *Program) fundingAccounts(ix *ledger.Instruction) (Params, Identity, error) {
	if len(ix.Accounts) < fundingAccounts {
		return Params{}, Identity{}, ledger.Reject(ledger.CodeInvalidInstruction, ProgramID, "expected %d accounts, got %d", fundingAccounts, len(ix.Accounts))
	}
	params, err := DecodeParams(ix.Data)
	if err != nil {
		return Params{}, Identity{}, ledger.Reject(ledger.CodeInvalidInstruction, ProgramID, "%v", err)
	}
	id, err := DeriveFaucetIdentity(params.Spec.Difficulty, params.Spec.Reward)
	if err != nil {
		return Params{}, Identity{}, ledger.Reject(ledger.CodeInvalidInstruction, ProgramID, "%v", err)
	}
	if ix.Accounts[FundingAccountSpec].PublicKey != id.Spec {
		return Params{}, Identity{}, ledger.Reject(ledger.CodeInvalidInstruction, ix.Accounts[FundingAccountSpec].PublicKey, "spec address does not match its seeds")
	}
	if ix.Accounts[FundingAccountSource].PublicKey != id.Source {
		return Params{}, Identity{}, ledger.Reject(ledger.CodeInvalidInstruction, ix.Accounts[FundingAccountSource].PublicKey, "source address does not match its seeds")
	}
	return params, id, nil
}

func (p *Program) create(ic ledger.InvokeContext, ix *ledger.Instruction) error {
	params, id, err := p.fundingAccounts(ix)
	if err != nil {
		return err
	}
	payer := ix.Accounts[FundingAccountPayer].PublicKey
	if !ic.IsSigner(payer) {
		return ledger.Reject(ledger.CodeMissingSignature, payer, "creator must sign")
	}

	data, _ := params.Spec.MarshalBinary()
	if err := ic.CreateAccount(id.Spec, ProgramID, data); err != nil {
		return err
	}

	if source := ic.Account(id.Source); source == nil {
		if err := ic.CreateAccount(id.Source, ProgramID, nil); err != nil {
			return err
		}
	} else if source.Owner != ProgramID {
		return ledger.Reject(ledger.CodeInvalidInstruction, id.Source, "source address is held by another program")
	}

	if params.Lamports > 0 {
		if err := ic.Transfer(payer, id.Source, params.Lamports); err != nil {
			return err
		}
	}

	p.logger.Debug().Uint8("difficulty", params.Spec.Difficulty).Uint64("reward", params.Spec.Reward).
		Str("spec", id.Spec.String()).Uint64("funding", params.Lamports).Msg("faucet created")
	return nil
}

func (p *Program) fund(ic ledger.InvokeContext, ix *ledger.Instruction) error {
	params, id, err := p.fundingAccounts(ix)
	if err != nil {
		return err
	}
	if params.Lamports == 0 {
		return ledger.Reject(ledger.CodeInvalidInstruction, id.Source, "nothing to fund")
	}
	if spec := ic.Account(id.Spec); spec == nil || spec.Owner != ProgramID {
		return ledger.Reject(ledger.CodeAccountNotFound, id.Spec, "faucet does not exist")
	}
	return ic.Transfer(ix.Accounts[FundingAccountPayer].PublicKey, id.Source, params.Lamports)
}

// claim pays the spec's reward from its source to the payer once per
// (winner, difficulty). All checks run before any state changes.
func (p *Program) claim(ic ledger.InvokeContext, ix *ledger.Instruction) error {
	if len(ix.Accounts) < claimAccounts {
		return ledger.Reject(ledger.CodeInvalidInstruction, ProgramID, "expected %d accounts, got %d", claimAccounts, len(ix.Accounts))
	}
	payer := ix.Accounts[ClaimAccountPayer].PublicKey
	winner := ix.Accounts[ClaimAccountWinner].PublicKey
	receiptAddr := ix.Accounts[ClaimAccountReceipt].PublicKey
	specAddr := ix.Accounts[ClaimAccountSpec].PublicKey
	sourceAddr := ix.Accounts[ClaimAccountSource].PublicKey

	if !ic.IsSigner(winner) {
		return ledger.Reject(ledger.CodeMissingSignature, winner, "winning key must sign the claim")
	}

	specAccount := ic.Account(specAddr)
	if specAccount == nil || specAccount.Owner != ProgramID {
		return ledger.Reject(ledger.CodeAccountNotFound, specAddr, "faucet does not exist")
	}
	var spec Spec
	if err := spec.UnmarshalBinary(specAccount.Data); err != nil {
		return ledger.Reject(ledger.CodeInvalidInstruction, specAddr, "%v", err)
	}

	id, err := DeriveFaucetIdentity(spec.Difficulty, spec.Reward)
	if err != nil {
		return ledger.Reject(ledger.CodeInvalidInstruction, specAddr, "%v", err)
	}
	if id.Spec != specAddr {
		return ledger.Reject(ledger.CodeInvalidInstruction, specAddr, "spec address does not match its seeds")
	}
	if id.Source != sourceAddr {
		return ledger.Reject(ledger.CodeInvalidInstruction, sourceAddr, "source address does not match its seeds")
	}
	receipt, err := DeriveReceiptIdentity(winner, spec.Difficulty)
	if err != nil || receipt != receiptAddr {
		return ledger.Reject(ledger.CodeInvalidInstruction, receiptAddr, "receipt address does not match its seeds")
	}

	if !solana.Passes(winner[:], spec.Difficulty) {
		return ledger.Reject(ledger.CodeDifficultyNotMet, winner, "address does not meet difficulty %d", spec.Difficulty)
	}

	if ic.Account(receiptAddr) != nil {
		return ledger.Reject(ledger.CodeAccountExists, receiptAddr, "proof already claimed")
	}
	source := ic.Account(sourceAddr)
	if source == nil || source.Lamports < spec.Reward {
		var balance uint64
		if source != nil {
			balance = source.Lamports
		}
		return ledger.Reject(ledger.CodeInsufficientFunds, sourceAddr, "source holds %d, reward is %d", balance, spec.Reward)
	}

	if err := ic.CreateAccount(receiptAddr, ProgramID, nil); err != nil {
		return err
	}
	if err := ic.Transfer(sourceAddr, payer, spec.Reward); err != nil {
		return err
	}

	p.logger.Debug().Str("winner", winner.String()).Uint8("difficulty", spec.Difficulty).
		Uint64("reward", spec.Reward).Msg("claim paid")
	return nil
}
