package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
	"github.com/Amr-9/powfaucet/pkg/ledger/devnet"
	"github.com/Amr-9/powfaucet/pkg/ledger/httpapi"
)

func newTestServer(t *testing.T, cfg httpapi.Config) (*Client, *devnet.Ledger) {
	t.Helper()
	l, err := devnet.OpenMemory(
		devnet.WithProgram(faucet.NewProgram(zerolog.Nop())),
		devnet.WithGenesisHash("EtWTRABZaYq6iMfeYKouRu166VU2xqa1wcaWoxPkrZBG"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(httpapi.New(l, cfg, zerolog.Nop(), reg, reg).Handler())
	t.Cleanup(srv.Close)

	return New(srv.URL), l
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestServer(t, httpapi.DefaultConfig())

	genesis, err := c.GenesisHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EtWTRABZaYq6iMfeYKouRu166VU2xqa1wcaWoxPkrZBG", genesis)

	payer, err := solana.NewKeypair()
	require.NoError(t, err)

	_, err = c.GetAccount(ctx, payer.PublicKey())
	assert.True(t, errors.Is(err, ledger.ErrAccountNotFound), "got %v", err)

	balance, err := c.GetBalance(ctx, payer.PublicKey())
	require.NoError(t, err)
	assert.Zero(t, balance)

	sig, err := c.RequestAirdrop(ctx, payer.PublicKey(), 2*ledger.LamportsPerSOL)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	reward := faucet.LamportsFromSOL(0.1)
	ix, err := faucet.NewCreateInstruction(payer.PublicKey(), 0, reward, ledger.LamportsPerSOL)
	require.NoError(t, err)
	tx := ledger.NewTransaction(payer.PublicKey(), 9, ix)
	require.NoError(t, tx.Sign(payer))

	sig, err = c.SendTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Reference(), sig)

	// the same transaction again is refused with a typed rejection
	_, err = c.SendTransaction(ctx, tx)
	rej, ok := ledger.AsRejection(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, ledger.CodeAccountExists, rej.Code)
	assert.Equal(t, 0, rej.Instruction)

	id, err := faucet.DeriveFaucetIdentity(0, reward)
	require.NoError(t, err)
	acc, err := c.GetAccount(ctx, id.Spec)
	require.NoError(t, err)
	assert.Equal(t, faucet.ProgramID, acc.Owner)
	assert.Equal(t, id.Spec, acc.Address)

	faucets, err := faucet.NewDirectory(c, 0).List(ctx)
	require.NoError(t, err)
	require.Len(t, faucets, 1)
	assert.Equal(t, ledger.LamportsPerSOL, faucets[0].Balance)
	assert.Equal(t, uint8(0), faucets[0].Spec.Difficulty)
}

func TestCongestion(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestServer(t, httpapi.Config{TransactionsPerSecond: 0.001, Burst: 1, MaxAirdrop: ledger.LamportsPerSOL})

	payer, err := solana.NewKeypair()
	require.NoError(t, err)
	tx := ledger.NewTransaction(payer.PublicKey(), 1, ledger.Instruction{ProgramID: faucet.ProgramID, Data: []byte{9}})
	require.NoError(t, tx.Sign(payer))

	// first call spends the burst, second is throttled
	_, err = c.SendTransaction(ctx, tx)
	require.Error(t, err)
	_, err = c.SendTransaction(ctx, tx)
	rej, ok := ledger.AsRejection(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, ledger.CodeCongested, rej.Code)
}

func TestAirdropLimits(t *testing.T) {
	c, _ := newTestServer(t, httpapi.Config{MaxAirdrop: ledger.LamportsPerSOL})
	payer, err := solana.NewKeypair()
	require.NoError(t, err)

	_, err = c.RequestAirdrop(context.Background(), payer.PublicKey(), 2*ledger.LamportsPerSOL)
	require.Error(t, err)
	_, ok := ledger.AsRejection(err)
	assert.False(t, ok)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).GenesisHash(context.Background())
	require.Error(t, err)
	_, ok := ledger.AsRejection(err)
	assert.False(t, ok)
}

func TestMetricsEndpoint(t *testing.T) {
	l, err := devnet.OpenMemory()
	require.NoError(t, err)
	defer l.Close()

	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(httpapi.New(l, httpapi.DefaultConfig(), zerolog.Nop(), reg, reg).Handler())
	defer srv.Close()

	payer, err := solana.NewKeypair()
	require.NoError(t, err)
	tx := ledger.NewTransaction(payer.PublicKey(), 1, ledger.Instruction{ProgramID: faucet.ProgramID, Data: []byte{0}})
	require.NoError(t, tx.Sign(payer))
	_, err = New(srv.URL).SendTransaction(context.Background(), tx)
	require.Error(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
