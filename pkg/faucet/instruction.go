package faucet

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

// Tag is the first byte of faucet instruction data.
type Tag byte

const (
	TagCreate Tag = iota
	TagFund
	TagClaim
)

func (t Tag) String() string {
	switch t {
	case TagCreate:
		return "create"
	case TagFund:
		return "fund"
	case TagClaim:
		return "claim"
	}
	return "unknown"
}

// Claim instruction account positions.
const (
	ClaimAccountPayer = iota
	ClaimAccountWinner
	ClaimAccountReceipt
	ClaimAccountSpec
	ClaimAccountSource
	claimAccounts
)

// Create and Fund instruction account positions.
const (
	FundingAccountPayer = iota
	FundingAccountSpec
	FundingAccountSource
	fundingAccounts
)

// ErrInvalidInstruction is returned for instruction data that does not parse.
var ErrInvalidInstruction = errors.New("invalid faucet instruction")

// Params are the decoded arguments of a Create or Fund instruction.
type Params struct {
	Spec     Spec
	Lamports uint64
}

// NewCreateInstruction registers a faucet for (difficulty, reward) and moves
// funding lamports from payer into its source.
func NewCreateInstruction(payer solana.PublicKey, difficulty uint8, reward, funding uint64) (ledger.Instruction, error) {
	return newFundingInstruction(TagCreate, payer, difficulty, reward, funding)
}

// NewFundInstruction tops up an existing faucet.
func NewFundInstruction(payer solana.PublicKey, difficulty uint8, reward, lamports uint64) (ledger.Instruction, error) {
	return newFundingInstruction(TagFund, payer, difficulty, reward, lamports)
}

func newFundingInstruction(tag Tag, payer solana.PublicKey, difficulty uint8, reward, lamports uint64) (ledger.Instruction, error) {
	id, err := DeriveFaucetIdentity(difficulty, reward)
	if err != nil {
		return ledger.Instruction{}, err
	}
	data := []byte{byte(tag), difficulty}
	data = binary.LittleEndian.AppendUint64(data, reward)
	data = binary.LittleEndian.AppendUint64(data, lamports)

	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: id.Spec, IsWritable: tag == TagCreate},
			{PublicKey: id.Source, IsWritable: true},
		},
		Data: data,
	}, nil
}

// NewClaimInstruction pays the reward of the (difficulty, reward) faucet to
// payer. winner must sign the transaction.
func NewClaimInstruction(payer, winner solana.PublicKey, difficulty uint8, reward uint64) (ledger.Instruction, error) {
	id, err := DeriveFaucetIdentity(difficulty, reward)
	if err != nil {
		return ledger.Instruction{}, err
	}
	receipt, err := DeriveReceiptIdentity(winner, difficulty)
	if err != nil {
		return ledger.Instruction{}, err
	}

	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: winner, IsSigner: true},
			{PublicKey: receipt, IsWritable: true},
			{PublicKey: id.Spec},
			{PublicKey: id.Source, IsWritable: true},
		},
		Data: []byte{byte(TagClaim)},
	}, nil
}

// DecodeTag returns the tag of instruction data.
func DecodeTag(data []byte) (Tag, error) {
	if len(data) == 0 {
		return 0, errors.Wrap(ErrInvalidInstruction, "empty data")
	}
	tag := Tag(data[0])
	if tag > TagClaim {
		return 0, errors.Wrapf(ErrInvalidInstruction, "unknown tag %d", data[0])
	}
	return tag, nil
}

// DecodeParams decodes the arguments of a Create or Fund instruction.
func DecodeParams(data []byte) (Params, error) {
	const size = 1 + 1 + 8 + 8
	if len(data) != size {
		return Params{}, errors.Wrapf(ErrInvalidInstruction, "expected %d bytes, got %d", size, len(data))
	}
	return Params{
		Spec: Spec{
			Difficulty: data[1],
			Reward:     binary.LittleEndian.Uint64(data[2:10]),
		},
		Lamports: binary.LittleEndian.Uint64(data[10:]),
	}, nil
}
