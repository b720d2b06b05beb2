package devnet

import (
	"github.com/cockroachdb/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

type entry struct {
	account *ledger.Account // nil when the address holds nothing
	dirty   bool
	created bool
}

// state stages the account changes of one transaction. Nothing reaches the
// database until commit writes every dirty account in one batch.
type state struct {
	l       *Ledger
	entries map[solana.PublicKey]*entry
	signers map[solana.PublicKey]bool
}

func newState(l *Ledger) *state {
	return &state{
		l:       l,
		entries: make(map[solana.PublicKey]*entry),
		signers: make(map[solana.PublicKey]bool),
	}
}

func (s *state) get(addr solana.PublicKey) (*ledger.Account, error) {
	if e, ok := s.entries[addr]; ok {
		return e.account, nil
	}
	acc, err := s.l.load(addr)
	if err != nil {
		return nil, err
	}
	s.entries[addr] = &entry{account: acc}
	return acc, nil
}

func (s *state) create(addr, owner solana.PublicKey, data []byte) *ledger.Account {
	acc := &ledger.Account{Address: addr, Owner: owner}
	if len(data) > 0 {
		acc.Data = append([]byte(nil), data...)
	}
	s.entries[addr] = &entry{account: acc, dirty: true, created: true}
	return acc
}

func (s *state) touch(addr solana.PublicKey) {
	if e, ok := s.entries[addr]; ok {
		e.dirty = true
	}
}

func (s *state) commit() error {
	batch := new(leveldb.Batch)
	for addr, e := range s.entries {
		if !e.dirty || e.account == nil {
			continue
		}
		raw, err := e.account.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "encode account %s", addr)
		}
		batch.Put(accountKey(addr), raw)
		if e.created {
			batch.Put(ownerKey(e.account.Owner, addr), nil)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.l.db.Write(batch, nil); err != nil {
		return errors.Mark(errors.Wrap(err, "commit batch"), errStorage)
	}
	return nil
}

// invocation is the ledger.InvokeContext handed to a program for one instruction.
type invocation struct {
	state   *state
	program solana.PublicKey
	ix      *ledger.Instruction
}

var _ ledger.InvokeContext = (*invocation)(nil)

func (inv *invocation) Account(addr solana.PublicKey) *ledger.Account {
	acc, err := inv.state.get(addr)
	if err != nil || acc == nil {
		return nil
	}
	return acc.Clone()
}

func (inv *invocation) IsSigner(addr solana.PublicKey) bool {
	if !inv.state.signers[addr] {
		return false
	}
	for _, meta := range inv.ix.Accounts {
		if meta.PublicKey == addr && meta.IsSigner {
			return true
		}
	}
	return false
}

func (inv *invocation) writable(addr solana.PublicKey) bool {
	for _, meta := range inv.ix.Accounts {
		if meta.PublicKey == addr && meta.IsWritable {
			return true
		}
	}
	return false
}

func (inv *invocation) CreateAccount(addr, owner solana.PublicKey, data []byte) error {
	if !inv.writable(addr) {
		return ledger.Reject(ledger.CodeInvalidInstruction, addr, "account is not writable")
	}
	acc, err := inv.state.get(addr)
	if err != nil {
		return err
	}
	if acc != nil {
		return ledger.Reject(ledger.CodeAccountExists, addr, "account already exists")
	}
	inv.state.create(addr, owner, data)
	return nil
}

func (inv *invocation) Transfer(from, to solana.PublicKey, lamports uint64) error {
	if !inv.writable(from) {
		return ledger.Reject(ledger.CodeInvalidInstruction, from, "account is not writable")
	}
	if !inv.writable(to) {
		return ledger.Reject(ledger.CodeInvalidInstruction, to, "account is not writable")
	}

	src, err := inv.state.get(from)
	if err != nil {
		return err
	}
	if src == nil {
		return ledger.Reject(ledger.CodeAccountNotFound, from, "transfer source does not exist")
	}
	if src.Owner != inv.program && !inv.IsSigner(from) {
		return ledger.Reject(ledger.CodeMissingSignature, from, "debit requires the account's signature")
	}
	if src.Lamports < lamports {
		return ledger.Reject(ledger.CodeInsufficientFunds, from, "balance %d is below %d", src.Lamports, lamports)
	}
	if lamports == 0 || from == to {
		return nil
	}

	dst, err := inv.state.get(to)
	if err != nil {
		return err
	}
	if dst == nil {
		dst = inv.state.create(to, ledger.SystemProgramID, nil)
	}
	if dst.Lamports+lamports < dst.Lamports {
		return ledger.Reject(ledger.CodeInvalidInstruction, to, "balance overflow")
	}

	src.Lamports -= lamports
	dst.Lamports += lamports
	inv.state.touch(from)
	inv.state.touch(to)
	return nil
}
