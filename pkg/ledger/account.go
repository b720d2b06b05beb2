package ledger

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

// Account is a balance plus optional program data at an address.
type Account struct {
	Address  solana.PublicKey `json:"address"`
	Owner    solana.PublicKey `json:"owner"`
	Lamports uint64           `json:"lamports"`
	Data     []byte           `json:"data,omitempty"`
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	if a.Data != nil {
		c.Data = append([]byte(nil), a.Data...)
	}
	return &c
}

// MarshalBinary packs owner | lamports u64le | data.
func (a *Account) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, solana.PublicKeySize+8+len(a.Data))
	buf = append(buf, a.Owner[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, a.Lamports)
	buf = append(buf, a.Data...)
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary. Address is not part of the
// encoding and must be set by the caller.
func (a *Account) UnmarshalBinary(b []byte) error {
	if len(b) < solana.PublicKeySize+8 {
		return errors.Newf("account record too short: %d bytes", len(b))
	}
	copy(a.Owner[:], b[:solana.PublicKeySize])
	a.Lamports = binary.LittleEndian.Uint64(b[solana.PublicKeySize:])
	rest := b[solana.PublicKeySize+8:]
	a.Data = nil
	if len(rest) > 0 {
		a.Data = append([]byte(nil), rest...)
	}
	return nil
}
