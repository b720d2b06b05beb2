// Package ledger describes the authoritative account store a faucet client
// talks to: accounts, signed transactions, typed rejections and the
// deterministic program-address derivation both sides agree on.
package ledger

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

const (
	// LamportsPerSOL is the number of base units in one SOL.
	LamportsPerSOL uint64 = 1_000_000_000

	// FeePerSignature is charged to the fee payer of every committed transaction,
	// once per signature.
	FeePerSignature uint64 = 5000
)

// SystemProgramID owns plain wallet accounts.
var SystemProgramID = solana.PublicKey{}

// ErrAccountNotFound is returned by account queries for addresses that hold no account.
var ErrAccountNotFound = errors.New("account not found")

// Ledger is an authoritative, linearizable store that executes transactions
// atomically: every effect of a transaction commits, or none does.
type Ledger interface {
	// GenesisHash identifies the network.
	GenesisHash(ctx context.Context) (string, error)

	// GetAccount returns ErrAccountNotFound when nothing lives at addr.
	GetAccount(ctx context.Context, addr solana.PublicKey) (*Account, error)

	// GetBalance returns 0 for missing accounts.
	GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)

	// AccountsByOwner lists every account owned by program.
	AccountsByOwner(ctx context.Context, program solana.PublicKey) ([]*Account, error)

	// SendTransaction executes tx and returns its reference. A rejected
	// transaction returns a *Rejection and changes nothing.
	SendTransaction(ctx context.Context, tx *Transaction) (string, error)

	// RequestAirdrop mints lamports into addr.
	RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (string, error)
}

// Program executes the instructions addressed to its ID.
type Program interface {
	ID() solana.PublicKey
	Execute(ic InvokeContext, ix *Instruction) error
}

// InvokeContext is the view of the ledger a Program gets while one
// instruction runs. Changes are staged and only become visible when the
// whole transaction commits.
type InvokeContext interface {
	// Account returns a copy of the staged account, or nil.
	Account(addr solana.PublicKey) *Account

	// IsSigner reports whether addr signed the transaction.
	IsSigner(addr solana.PublicKey) bool

	// CreateAccount creates an empty-balance account. It fails with
	// CodeAccountExists if addr is taken.
	CreateAccount(addr, owner solana.PublicKey, data []byte) error

	// Transfer moves lamports. The source must be a signer or owned by the
	// running program.
	Transfer(from, to solana.PublicKey, lamports uint64) error
}
