// Package faucet models proof-of-work faucets: the content-addressed spec
// account that fixes (difficulty, reward), the funding source that pays
// claims, and the one-time receipt that marks a proof as spent.
package faucet

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

// ProgramID is the address of the faucet program.
var ProgramID = solana.MustPublicKey("PoWSNH2hEZogtCg1Zgm51FnkmJperzYDgPK4fvs8taL")

// SpecDataSize is the size of a spec account: difficulty u8 | reward u64le.
const SpecDataSize = 9

var (
	// ErrSpecNotFound is returned when no faucet exists for a (difficulty, reward) pair.
	ErrSpecNotFound = errors.New("faucet spec not found")
	// ErrInvalidSpec is returned for spec accounts whose data cannot be decoded.
	ErrInvalidSpec = errors.New("invalid faucet spec data")
)

// Spec is the immutable description of a faucet.
type Spec struct {
	Difficulty uint8  `json:"difficulty"`
	Reward     uint64 `json:"reward"`
}

// MarshalBinary encodes the spec account data.
func (s Spec) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, SpecDataSize)
	buf = append(buf, s.Difficulty)
	return binary.LittleEndian.AppendUint64(buf, s.Reward), nil
}

// UnmarshalBinary decodes spec account data.
func (s *Spec) UnmarshalBinary(b []byte) error {
	if len(b) != SpecDataSize {
		return errors.Wrapf(ErrInvalidSpec, "expected %d bytes, got %d", SpecDataSize, len(b))
	}
	s.Difficulty = b[0]
	s.Reward = binary.LittleEndian.Uint64(b[1:])
	return nil
}

// Identity holds the derived addresses of a faucet.
type Identity struct {
	Spec       solana.PublicKey
	SpecBump   uint8
	Source     solana.PublicKey
	SourceBump uint8
}

func specSeeds(difficulty uint8, reward uint64) [][]byte {
	return [][]byte{
		[]byte("spec"),
		{difficulty},
		binary.LittleEndian.AppendUint64(nil, reward),
	}
}

func sourceSeeds(spec solana.PublicKey) [][]byte {
	return [][]byte{[]byte("source"), spec[:]}
}

func receiptSeeds(winner solana.PublicKey, difficulty uint8) [][]byte {
	return [][]byte{[]byte("receipt"), winner[:], {difficulty}}
}

// DeriveFaucetIdentity returns the spec and funding source addresses for a
// (difficulty, reward) pair. Any two callers with the same inputs agree.
func DeriveFaucetIdentity(difficulty uint8, reward uint64) (Identity, error) {
	spec, specBump, err := ledger.FindProgramAddress(specSeeds(difficulty, reward), ProgramID)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "derive spec for difficulty %d reward %d", difficulty, reward)
	}
	source, sourceBump, err := ledger.FindProgramAddress(sourceSeeds(spec), ProgramID)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "derive source for spec %s", spec)
	}
	return Identity{Spec: spec, SpecBump: specBump, Source: source, SourceBump: sourceBump}, nil
}

// DeriveReceiptIdentity returns the receipt address that marks winner's proof
// at difficulty as spent.
func DeriveReceiptIdentity(winner solana.PublicKey, difficulty uint8) (solana.PublicKey, error) {
	receipt, _, err := ledger.FindProgramAddress(receiptSeeds(winner, difficulty), ProgramID)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "derive receipt for %s", winner)
	}
	return receipt, nil
}
