// Package devnet is a single-node ledger backed by goleveldb. It executes
// transactions under one writer lock and commits each as a single batch, so
// a rejected transaction leaves no trace.
package devnet

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

var errStorage = errors.New("ledger storage failure")

var (
	prefixAccount = []byte("a")
	prefixOwner   = []byte("o")
	keyGenesis    = []byte("genesis")
)

// Ledger is the goleveldb-backed implementation of ledger.Ledger.
type Ledger struct {
	mu       sync.Mutex
	db       *leveldb.DB
	programs map[solana.PublicKey]ledger.Program
	genesis  string
	logger   zerolog.Logger
}

var _ ledger.Ledger = (*Ledger)(nil)

// Option configures a Ledger.
type Option func(*Ledger)

// WithProgram registers a program that transactions may invoke.
func WithProgram(p ledger.Program) Option {
	return func(l *Ledger) {
		l.programs[p.ID()] = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithGenesisHash fixes the genesis hash of a new database. An existing
// database keeps the hash it was created with.
func WithGenesisHash(hash string) Option {
	return func(l *Ledger) {
		l.genesis = hash
	}
}

// Open opens or creates a ledger database in dir.
func Open(dir string, opts ...Option) (*Ledger, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger database %s", dir)
	}
	return newLedger(db, opts...)
}

// OpenMemory creates a ledger that lives only in memory.
func OpenMemory(opts ...Option) (*Ledger, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "open in-memory ledger")
	}
	return newLedger(db, opts...)
}

func newLedger(db *leveldb.DB, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		db:       db,
		programs: make(map[solana.PublicKey]ledger.Program),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	stored, err := db.Get(keyGenesis, nil)
	switch {
	case err == nil:
		l.genesis = string(stored)
	case errors.Is(err, leveldb.ErrNotFound):
		if l.genesis == "" {
			seed := make([]byte, 32)
			if _, err := rand.Read(seed); err != nil {
				_ = db.Close()
				return nil, errors.Wrap(err, "generate genesis hash")
			}
			l.genesis = base58.Encode(seed)
		}
		if err := db.Put(keyGenesis, []byte(l.genesis), nil); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "store genesis hash")
		}
	default:
		_ = db.Close()
		return nil, errors.Wrap(err, "read genesis hash")
	}

	l.logger.Debug().Str("genesis", l.genesis).Int("programs", len(l.programs)).Msg("ledger opened")
	return l, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// GenesisHash returns the network identifier.
func (l *Ledger) GenesisHash(ctx context.Context) (string, error) {
	return l.genesis, ctx.Err()
}

// GetAccount reads a committed account.
func (l *Ledger) GetAccount(ctx context.Context, addr solana.PublicKey) (*ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errors.Wrapf(ledger.ErrAccountNotFound, "%s", addr)
	}
	return acc, nil
}

// GetBalance returns the committed balance of addr, 0 if absent.
func (l *Ledger) GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	acc, err := l.GetAccount(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}

// AccountsByOwner returns the accounts owned by program in address order.
func (l *Ledger) AccountsByOwner(ctx context.Context, program solana.PublicKey) ([]*ledger.Account, error) {
	iter := l.db.NewIterator(util.BytesPrefix(ownerPrefix(program)), nil)
	defer iter.Release()

	var accounts []*ledger.Account
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var addr solana.PublicKey
		copy(addr[:], iter.Key()[len(prefixOwner)+solana.PublicKeySize:])
		acc, err := l.load(addr)
		if err != nil {
			return nil, err
		}
		if acc != nil {
			accounts = append(accounts, acc)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate owner index")
	}
	return accounts, nil
}

// RequestAirdrop mints lamports into addr, creating a wallet account if needed.
func (l *Ledger) RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st := newState(l)
	acc, err := st.get(addr)
	if err != nil {
		return "", err
	}
	if acc == nil {
		acc = st.create(addr, ledger.SystemProgramID, nil)
	}
	if acc.Lamports+lamports < acc.Lamports {
		return "", errors.Newf("airdrop overflows balance of %s", addr)
	}
	acc.Lamports += lamports
	st.touch(addr)

	if err := st.commit(); err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte("airdrop"))
	h.Write(addr[:])
	h.Write(binary.LittleEndian.AppendUint64(nil, lamports))
	h.Write(binary.LittleEndian.AppendUint64(nil, uint64(time.Now().UnixNano())))
	ref := base58.Encode(h.Sum(nil))

	l.logger.Info().Str("address", addr.String()).Uint64("lamports", lamports).Str("signature", ref).Msg("airdrop")
	return ref, nil
}

// SendTransaction verifies, executes and commits tx atomically.
func (l *Ledger) SendTransaction(ctx context.Context, tx *ledger.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := tx.VerifySignatures(); err != nil {
		return "", err
	}
	if len(tx.Message.Instructions) == 0 {
		return "", &ledger.Rejection{Code: ledger.CodeInvalidInstruction, Instruction: -1, Message: "no instructions"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st := newState(l)
	for _, sig := range tx.Signatures {
		st.signers[sig.Signer] = true
	}

	payer, err := st.get(tx.Message.FeePayer)
	if err != nil {
		return "", err
	}
	fee := tx.Fee()
	if payer == nil || payer.Lamports < fee {
		return "", &ledger.Rejection{
			Code:        ledger.CodeFeePayerUnderfunded,
			Instruction: -1,
			Account:     tx.Message.FeePayer,
			Message:     "fee payer cannot cover the transaction fee",
		}
	}
	payer.Lamports -= fee
	st.touch(tx.Message.FeePayer)

	for i := range tx.Message.Instructions {
		ix := &tx.Message.Instructions[i]
		program, ok := l.programs[ix.ProgramID]
		if !ok {
			return "", &ledger.Rejection{Code: ledger.CodeUnknownProgram, Instruction: i, Account: ix.ProgramID}
		}
		if err := program.Execute(&invocation{state: st, program: ix.ProgramID, ix: ix}, ix); err != nil {
			return "", asInstructionRejection(err, i)
		}
	}

	if err := st.commit(); err != nil {
		return "", err
	}

	ref := tx.Reference()
	l.logger.Debug().Str("signature", ref).Str("fee_payer", tx.Message.FeePayer.String()).
		Int("instructions", len(tx.Message.Instructions)).Msg("transaction committed")
	return ref, nil
}

func (l *Ledger) load(addr solana.PublicKey) (*ledger.Account, error) {
	raw, err := l.db.Get(accountKey(addr), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read account %s", addr), errStorage)
	}
	acc := &ledger.Account{Address: addr}
	if err := acc.UnmarshalBinary(raw); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode account %s", addr), errStorage)
	}
	return acc, nil
}

func asInstructionRejection(err error, index int) error {
	if errors.Is(err, errStorage) {
		return err
	}
	if rej, ok := ledger.AsRejection(err); ok {
		scoped := *rej
		scoped.Instruction = index
		return &scoped
	}
	return &ledger.Rejection{Code: ledger.CodeInvalidInstruction, Instruction: index, Message: err.Error()}
}

func accountKey(addr solana.PublicKey) []byte {
	return append(append([]byte{}, prefixAccount...), addr[:]...)
}

func ownerPrefix(owner solana.PublicKey) []byte {
	return append(append([]byte{}, prefixOwner...), owner[:]...)
}

func ownerKey(owner, addr solana.PublicKey) []byte {
	return append(ownerPrefix(owner), addr[:]...)
}
