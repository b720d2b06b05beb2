package solana

import (
	"bytes"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
)

const (
	// PublicKeySize is the length of a raw Solana address.
	PublicKeySize = 32

	// Sentinel is the character a qualifying address must start with,
	// repeated once per difficulty level.
	Sentinel = 'A'

	// MaxDifficulty is the length of the longest Base58 rendering of a
	// 32-byte address. No address can satisfy a larger difficulty.
	MaxDifficulty = 44
)

// PublicKey is a raw 32-byte Solana address. Its canonical text form is Base58.
type PublicKey [PublicKeySize]byte

// ErrInvalidPublicKey is returned when text or bytes do not decode to a 32-byte address.
var ErrInvalidPublicKey = errors.New("invalid public key")

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, errors.Wrapf(ErrInvalidPublicKey, "expected %d bytes, got %d", PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// PublicKeyFromBase58 parses the canonical text form of an address.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	if invalid := InvalidBase58Chars(s); len(invalid) > 0 {
		return PublicKey{}, errors.Mark(&InvalidBase58Error{Char: invalid[0]}, ErrInvalidPublicKey)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, errors.Mark(errors.Wrapf(err, "decode %q", s), ErrInvalidPublicKey)
	}
	return PublicKeyFromBytes(b)
}

// MustPublicKey is PublicKeyFromBase58 for compile-time constants.
func MustPublicKey(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the Base58 rendering.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the raw address.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, pk[:])
	return b
}

// IsZero reports whether pk is the all-zero address.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Equals compares two addresses.
func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := PublicKeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Passes reports whether the Base58 rendering of address begins with
// difficulty copies of Sentinel. Difficulty 0 always passes.
//
// The check runs on the rendered text, not on raw bytes: every leading zero
// byte renders as '1', so the text form is the only faithful input.
func Passes(address []byte, difficulty uint8) bool {
	if difficulty == 0 {
		return true
	}
	encoded := base58.Encode(address)
	if len(encoded) < int(difficulty) {
		return false
	}
	for i := 0; i < int(difficulty); i++ {
		if encoded[i] != Sentinel {
			return false
		}
	}
	return true
}

// LeadingRun returns the number of leading Sentinel characters in the
// rendering of address.
func LeadingRun(address []byte) int {
	encoded := base58.Encode(address)
	n := 0
	for n < len(encoded) && encoded[n] == Sentinel {
		n++
	}
	return n
}

// ExpectedAttempts is the approximate number of random keys that must be
// generated to find one meeting difficulty. Each extra level multiplies the
// cost by the size of the Base58 alphabet (58).
func ExpectedAttempts(difficulty uint8) float64 {
	return math.Pow(float64(len(base58Alphabet)), float64(difficulty))
}
