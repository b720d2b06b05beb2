package ledger

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

const messageVersion byte = 1

// Signature is a 64-byte ed25519 signature rendered as Base58.
type Signature [solana.SignatureSize]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	b, err := base58.Decode(string(text))
	if err != nil {
		return errors.Wrap(err, "decode signature")
	}
	if len(b) != solana.SignatureSize {
		return errors.Newf("signature must be %d bytes, got %d", solana.SignatureSize, len(b))
	}
	copy(s[:], b)
	return nil
}

// AccountMeta names an account an instruction touches.
type AccountMeta struct {
	PublicKey  solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"is_signer"`
	IsWritable bool             `json:"is_writable"`
}

// Instruction is one program invocation.
type Instruction struct {
	ProgramID solana.PublicKey `json:"program_id"`
	Accounts  []AccountMeta    `json:"accounts"`
	Data      []byte           `json:"data"`
}

// Account returns the i-th account key, or false if the instruction has fewer accounts.
func (ix *Instruction) Account(i int) (solana.PublicKey, bool) {
	if i < 0 || i >= len(ix.Accounts) {
		return solana.PublicKey{}, false
	}
	return ix.Accounts[i].PublicKey, true
}

// Message is the signed part of a transaction.
type Message struct {
	FeePayer     solana.PublicKey `json:"fee_payer"`
	Nonce        uint64           `json:"nonce"`
	Instructions []Instruction    `json:"instructions"`
}

// Serialize returns the canonical bytes that signers sign:
//
//	version u8 | fee payer 32 | nonce u64le | n u8 | instructions
//	instruction: program 32 | m u8 | m x (key 32 | flags u8) | len u32le | data
func (m *Message) Serialize() ([]byte, error) {
	if len(m.Instructions) > 255 {
		return nil, errors.Newf("too many instructions: %d", len(m.Instructions))
	}
	buf := []byte{messageVersion}
	buf = append(buf, m.FeePayer[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, m.Nonce)
	buf = append(buf, byte(len(m.Instructions)))
	for i := range m.Instructions {
		ix := &m.Instructions[i]
		if len(ix.Accounts) > 255 {
			return nil, errors.Newf("instruction %d: too many accounts: %d", i, len(ix.Accounts))
		}
		buf = append(buf, ix.ProgramID[:]...)
		buf = append(buf, byte(len(ix.Accounts)))
		for _, meta := range ix.Accounts {
			var flags byte
			if meta.IsSigner {
				flags |= 1
			}
			if meta.IsWritable {
				flags |= 2
			}
			buf = append(buf, meta.PublicKey[:]...)
			buf = append(buf, flags)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ix.Data)))
		buf = append(buf, ix.Data...)
	}
	return buf, nil
}

// RequiredSigners returns the fee payer followed by every other account
// flagged as signer, without duplicates.
func (m *Message) RequiredSigners() []solana.PublicKey {
	signers := []solana.PublicKey{m.FeePayer}
	seen := map[solana.PublicKey]bool{m.FeePayer: true}
	for _, ix := range m.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !seen[meta.PublicKey] {
				seen[meta.PublicKey] = true
				signers = append(signers, meta.PublicKey)
			}
		}
	}
	return signers
}

// TransactionSignature pairs a signer with its signature over the message.
type TransactionSignature struct {
	Signer    solana.PublicKey `json:"signer"`
	Signature Signature        `json:"signature"`
}

// Transaction is a message plus the signatures that authorize it.
type Transaction struct {
	Message    Message                `json:"message"`
	Signatures []TransactionSignature `json:"signatures"`
}

// NewNonce returns a random message nonce. Two transactions with the same
// instructions differ only by nonce, which keeps their references distinct.
func NewNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, errors.Wrap(err, "generate nonce")
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewTransaction builds a transaction paid for by feePayer.
func NewTransaction(feePayer solana.PublicKey, nonce uint64, instructions ...Instruction) *Transaction {
	return &Transaction{
		Message: Message{
			FeePayer:     feePayer,
			Nonce:        nonce,
			Instructions: instructions,
		},
	}
}

// Sign adds a signature from each keypair. Signing with a key the message does
// not require is allowed; the ledger ignores it.
func (tx *Transaction) Sign(signers ...*solana.Keypair) error {
	msg, err := tx.Message.Serialize()
	if err != nil {
		return err
	}
	for _, kp := range signers {
		var sig Signature
		copy(sig[:], kp.Sign(msg))
		tx.setSignature(kp.PublicKey(), sig)
	}
	return nil
}

func (tx *Transaction) setSignature(signer solana.PublicKey, sig Signature) {
	for i := range tx.Signatures {
		if tx.Signatures[i].Signer == signer {
			tx.Signatures[i].Signature = sig
			return
		}
	}
	tx.Signatures = append(tx.Signatures, TransactionSignature{Signer: signer, Signature: sig})
}

// SignatureOf returns the signature made by signer, if any.
func (tx *Transaction) SignatureOf(signer solana.PublicKey) (Signature, bool) {
	for _, s := range tx.Signatures {
		if s.Signer == signer {
			return s.Signature, true
		}
	}
	return Signature{}, false
}

// Reference identifies the transaction: the Base58 fee payer signature.
func (tx *Transaction) Reference() string {
	sig, ok := tx.SignatureOf(tx.Message.FeePayer)
	if !ok {
		return ""
	}
	return sig.String()
}

// VerifySignatures checks that every required signer signed the message and
// that every attached signature is valid.
func (tx *Transaction) VerifySignatures() error {
	msg, err := tx.Message.Serialize()
	if err != nil {
		return &Rejection{Code: CodeInvalidInstruction, Instruction: -1, Message: err.Error()}
	}
	for _, s := range tx.Signatures {
		if !solana.Verify(s.Signer, msg, s.Signature[:]) {
			return &Rejection{Code: CodeInvalidSignature, Instruction: -1, Account: s.Signer}
		}
	}
	for _, signer := range tx.Message.RequiredSigners() {
		if _, ok := tx.SignatureOf(signer); !ok {
			return &Rejection{Code: CodeMissingSignature, Instruction: -1, Account: signer}
		}
	}
	return nil
}

// Fee is what the fee payer is charged if tx commits.
func (tx *Transaction) Fee() uint64 {
	return FeePerSignature * uint64(len(tx.Signatures))
}
