package ledger

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

func newTestKeypair(t *testing.T) *solana.Keypair {
	t.Helper()
	kp, err := solana.NewKeypair()
	require.NoError(t, err)
	return kp
}

func testTransaction(payer, other *solana.Keypair) *Transaction {
	return NewTransaction(payer.PublicKey(), 42, Instruction{
		ProgramID: solana.PublicKey{9},
		Accounts: []AccountMeta{
			{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true},
			{PublicKey: other.PublicKey(), IsSigner: true},
			{PublicKey: solana.PublicKey{7}, IsWritable: true},
		},
		Data: []byte{1, 2, 3},
	})
}

func TestTransactionSignAndVerify(t *testing.T) {
	payer, other := newTestKeypair(t), newTestKeypair(t)
	tx := testTransaction(payer, other)

	assert.Equal(t, []solana.PublicKey{payer.PublicKey(), other.PublicKey()}, tx.Message.RequiredSigners())

	require.NoError(t, tx.Sign(payer, other))
	require.NoError(t, tx.VerifySignatures())
	assert.Equal(t, 2*FeePerSignature, tx.Fee())

	sig, ok := tx.SignatureOf(payer.PublicKey())
	require.True(t, ok)
	assert.Equal(t, sig.String(), tx.Reference())

	// re-signing replaces rather than appends
	require.NoError(t, tx.Sign(payer))
	assert.Len(t, tx.Signatures, 2)
}

func TestTransactionMissingSignature(t *testing.T) {
	payer, other := newTestKeypair(t), newTestKeypair(t)
	tx := testTransaction(payer, other)
	require.NoError(t, tx.Sign(payer))

	err := tx.VerifySignatures()
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingSignature, rej.Code)
	assert.Equal(t, other.PublicKey(), rej.Account)
}

func TestTransactionTamperedMessage(t *testing.T) {
	payer, other := newTestKeypair(t), newTestKeypair(t)
	tx := testTransaction(payer, other)
	require.NoError(t, tx.Sign(payer, other))

	tx.Message.Instructions[0].Data[0] = 9
	rej, ok := AsRejection(tx.VerifySignatures())
	require.True(t, ok)
	assert.Equal(t, CodeInvalidSignature, rej.Code)
}

func TestTransactionJSON(t *testing.T) {
	payer, other := newTestKeypair(t), newTestKeypair(t)
	tx := testTransaction(payer, other)
	require.NoError(t, tx.Sign(payer, other))

	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), payer.PublicKey().String())

	var decoded Transaction
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NoError(t, decoded.VerifySignatures())
	assert.Equal(t, tx.Reference(), decoded.Reference())
}

func TestRejectionJSON(t *testing.T) {
	rej := &Rejection{Code: CodeInsufficientFunds, Instruction: 0, Account: solana.PublicKey{1}, Message: "short"}
	raw, err := json.Marshal(rej)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"insufficient_funds"`)

	var decoded Rejection
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, *rej, decoded)

	wrapped := errors.Wrap(rej, "send")
	got, ok := AsRejection(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInsufficientFunds, got.Code)
	assert.Contains(t, rej.Error(), "instruction 0")
}

func TestAccountBinary(t *testing.T) {
	acc := &Account{Owner: solana.PublicKey{3}, Lamports: 123456789, Data: []byte{1, 2}}
	raw, err := acc.MarshalBinary()
	require.NoError(t, err)

	var decoded Account
	require.NoError(t, decoded.UnmarshalBinary(raw))
	assert.Equal(t, acc.Owner, decoded.Owner)
	assert.Equal(t, acc.Lamports, decoded.Lamports)
	assert.Equal(t, acc.Data, decoded.Data)

	assert.Error(t, decoded.UnmarshalBinary([]byte{1}))
}
