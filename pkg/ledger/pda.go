package ledger

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

const (
	// MaxSeeds is the largest number of seeds one derivation accepts.
	MaxSeeds = 16
	// MaxSeedLength is the largest single seed.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrInvalidSeeds is returned when seeds exceed the count or length limits.
	ErrInvalidSeeds = errors.New("invalid program address seeds")
	// ErrOnCurve is returned when seeds hash to a point that could have a private key.
	ErrOnCurve = errors.New("program address is on the ed25519 curve")
	// ErrNoViableBump is returned when every bump lands on the curve.
	ErrNoViableBump = errors.New("unable to find a viable program address bump")
)

// CreateProgramAddress hashes seeds and programID into an address that has no
// private key. It fails if the hash is a valid ed25519 point.
//
//	sha256(seed_0 | ... | seed_n | programID | "ProgramDerivedAddress")
func CreateProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, error) {
	if err := validateSeeds(seeds, MaxSeeds); err != nil {
		return solana.PublicKey{}, err
	}
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr solana.PublicKey
	copy(addr[:], h.Sum(nil))
	if IsOnCurve(addr[:]) {
		return solana.PublicKey{}, ErrOnCurve
	}
	return addr, nil
}

// FindProgramAddress appends a one-byte bump to seeds, counting down from
// 255, and returns the first off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	if err := validateSeeds(seeds, MaxSeeds-1); err != nil {
		return solana.PublicKey{}, 0, err
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return solana.PublicKey{}, 0, err
		}
	}
	return solana.PublicKey{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether b decodes to a point on the ed25519 curve, that
// is, whether a private key could exist for it.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

func validateSeeds(seeds [][]byte, maxSeeds int) error {
	if len(seeds) > maxSeeds {
		return errors.Wrapf(ErrInvalidSeeds, "%d seeds, at most %d allowed", len(seeds), maxSeeds)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return errors.Wrapf(ErrInvalidSeeds, "seed %d is %d bytes", i, len(seed))
		}
	}
	return nil
}
