package solana

import (
	"crypto/rand"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

const (
	// KeypairSize is the length of a serialized keypair (seed followed by public key).
	KeypairSize = ed25519.PrivateKeySize
	// SignatureSize is the length of an ed25519 signature.
	SignatureSize = ed25519.SignatureSize
)

// ErrInvalidKeypair is returned when serialized keypair bytes are malformed
// or the embedded public key does not belong to the seed.
var ErrInvalidKeypair = errors.New("invalid keypair")

// Keypair is an ed25519 signing identity whose public key is a Solana address.
type Keypair struct {
	private ed25519.PrivateKey
	public  PublicKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	return GenerateKeypair(rand.Reader)
}

// GenerateKeypair generates a keypair from the given entropy source.
func GenerateKeypair(entropy io.Reader) (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(entropy)
	if err != nil {
		return nil, errors.Wrap(err, "generate ed25519 key")
	}
	return keypairFromPrivate(priv), nil
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Wrapf(ErrInvalidKeypair, "seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return keypairFromPrivate(ed25519.NewKeyFromSeed(seed)), nil
}

// KeypairFromBytes parses the 64-byte seed||public form used by Solana keypair files.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	if len(b) != KeypairSize {
		return nil, errors.Wrapf(ErrInvalidKeypair, "expected %d bytes, got %d", KeypairSize, len(b))
	}
	kp, err := KeypairFromSeed(b[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if string(kp.public[:]) != string(b[ed25519.SeedSize:]) {
		return nil, errors.Wrap(ErrInvalidKeypair, "public key does not match seed")
	}
	return kp, nil
}

func keypairFromPrivate(priv ed25519.PrivateKey) *Keypair {
	kp := &Keypair{private: priv}
	copy(kp.public[:], priv[ed25519.SeedSize:])
	return kp
}

// PublicKey returns the address of the keypair.
func (k *Keypair) PublicKey() PublicKey {
	return k.public
}

// Sign signs message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// Bytes returns the 64-byte seed||public serialization.
func (k *Keypair) Bytes() []byte {
	b := make([]byte, KeypairSize)
	copy(b, k.private)
	return b
}

// PrivateKeyBase58 returns the serialized keypair in Base58, the form wallets import.
func (k *Keypair) PrivateKeyBase58() string {
	return base58.Encode(k.private)
}

// Verify checks an ed25519 signature made by pub over message.
func Verify(pub PublicKey, message, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, signature)
}
