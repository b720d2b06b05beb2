// Package keystore reads and writes keypair files.
//
// Plain files use the Solana CLI layout: a JSON array of the 64 bytes
// seed||public. Sealed files hold the same bytes encrypted with a key derived
// from a passphrase (scrypt) and boxed with NaCl secretbox.
package keystore

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

var (
	// ErrSealed is returned by Read for a passphrase-protected file.
	ErrSealed = errors.New("keypair file is sealed")
	// ErrWrongPassphrase is returned when a sealed key does not open.
	ErrWrongPassphrase = errors.New("wrong passphrase")
)

const sealedVersion = 1

// scrypt cost parameters for new sealed files. Stored per file so they can be
// raised without breaking old files.
var (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// SealedKey is the on-disk form of a sealed keypair.
type SealedKey struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	N          int    `json:"n"`
	R          int    `json:"r"`
	P          int    `json:"p"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Read loads a plain keypair file.
func Read(path string) (*solana.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read keypair %s", path)
	}
	if isSealed(data) {
		return nil, errors.Wrapf(ErrSealed, "%s", path)
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, errors.Wrapf(err, "decode keypair %s", path)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, errors.Wrapf(solana.ErrInvalidKeypair, "%s: byte %d out of range", path, i)
		}
		raw[i] = byte(v)
	}
	kp, err := solana.KeypairFromBytes(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "load keypair %s", path)
	}
	return kp, nil
}

// Write stores kp as a plain keypair file readable only by the owner.
func Write(path string, kp *solana.Keypair) error {
	raw := kp.Bytes()
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return errors.Wrap(err, "encode keypair")
	}
	return writeFile(path, data)
}

// Seal encrypts kp under passphrase.
func Seal(kp *solana.Keypair, passphrase []byte) (*SealedKey, error) {
	return seal(rand.Reader, kp, passphrase)
}

func seal(entropy io.Reader, kp *solana.Keypair, passphrase []byte) (*SealedKey, error) {
	var salt [16]byte
	var nonce [24]byte
	if _, err := io.ReadFull(entropy, salt[:]); err != nil {
		return nil, errors.Wrap(err, "generate salt")
	}
	if _, err := io.ReadFull(entropy, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}

	key, err := deriveKey(passphrase, salt[:], scryptN, scryptR, scryptP)
	if err != nil {
		return nil, err
	}
	box := secretbox.Seal(nil, kp.Bytes(), &nonce, key)

	return &SealedKey{
		Version:    sealedVersion,
		Address:    kp.PublicKey().String(),
		N:          scryptN,
		R:          scryptR,
		P:          scryptP,
		Salt:       base58.Encode(salt[:]),
		Nonce:      base58.Encode(nonce[:]),
		Ciphertext: base58.Encode(box),
	}, nil
}

// Open decrypts the sealed keypair.
func (s *SealedKey) Open(passphrase []byte) (*solana.Keypair, error) {
	if s.Version != sealedVersion {
		return nil, errors.Newf("unsupported sealed key version %d", s.Version)
	}
	salt, err := base58.Decode(s.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "decode salt")
	}
	nonceBytes, err := base58.Decode(s.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, errors.New("malformed nonce")
	}
	box, err := base58.Decode(s.Ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "decode ciphertext")
	}

	key, err := deriveKey(passphrase, salt, s.N, s.R, s.P)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	raw, ok := secretbox.Open(nil, box, &nonce, key)
	if !ok {
		return nil, ErrWrongPassphrase
	}

	kp, err := solana.KeypairFromBytes(raw)
	if err != nil {
		return nil, err
	}
	if kp.PublicKey().String() != s.Address {
		return nil, errors.Wrapf(solana.ErrInvalidKeypair, "sealed key does not match address %s", s.Address)
	}
	return kp, nil
}

// WriteSealed seals kp and stores it at path.
func WriteSealed(path string, kp *solana.Keypair, passphrase []byte) error {
	sealed, err := Seal(kp, passphrase)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode sealed keypair")
	}
	return writeFile(path, data)
}

// ReadSealed opens the sealed keypair at path.
func ReadSealed(path string, passphrase []byte) (*solana.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read keypair %s", path)
	}
	var sealed SealedKey
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, errors.Wrapf(err, "decode sealed keypair %s", path)
	}
	kp, err := sealed.Open(passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return kp, nil
}

// IsSealed reports whether the file at path is a sealed keypair.
func IsSealed(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrapf(err, "read keypair %s", path)
	}
	return isSealed(data), nil
}

// EnsureDir creates dir for private key files.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create key directory %s", dir)
	}
	hideFile(dir)
	return nil
}

func isSealed(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("{"))
}

func deriveKey(passphrase, salt []byte, n, r, p int) (*[32]byte, error) {
	derived, err := scrypt.Key(passphrase, salt, n, r, p, 32)
	if err != nil {
		return nil, errors.Wrap(err, "derive sealing key")
	}
	var key [32]byte
	copy(key[:], derived)
	return &key, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write keypair %s", path)
	}
	return nil
}
