package miner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/powfaucet/pkg/claim"
	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator"
	"github.com/Amr-9/powfaucet/pkg/generator/cpu"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
	"github.com/Amr-9/powfaucet/pkg/ledger/devnet"
)

// flakyLedger fails SendTransaction on demand. With commitFirst set, a
// failing call still forwards the transaction, like a response lost after
// the ledger accepted it.
type flakyLedger struct {
	ledger.Ledger
	mu          sync.Mutex
	failures    int
	commitFirst bool
	sends       int
}

func (f *flakyLedger) SendTransaction(ctx context.Context, tx *ledger.Transaction) (string, error) {
	f.mu.Lock()
	f.sends++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if !fail {
		return f.Ledger.SendTransaction(ctx, tx)
	}
	if f.commitFirst {
		if _, err := f.Ledger.SendTransaction(ctx, tx); err != nil {
			return "", err
		}
	}
	return "", errors.New("read tcp: connection reset by peer")
}

// balanceLog records every address whose balance is read.
type balanceLog struct {
	ledger.Ledger
	mu    sync.Mutex
	reads []solana.PublicKey
}

func (b *balanceLog) GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	b.mu.Lock()
	b.reads = append(b.reads, addr)
	b.mu.Unlock()
	return b.Ledger.GetBalance(ctx, addr)
}

type fixture struct {
	ledger   *devnet.Ledger
	feePayer *solana.Keypair
	reward   uint64
	source   solana.PublicKey
}

func newFixture(t *testing.T, difficulty uint8, funding uint64) *fixture {
	t.Helper()
	ctx := context.Background()

	l, err := devnet.OpenMemory(devnet.WithProgram(faucet.NewProgram(zerolog.Nop())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	creator, err := solana.NewKeypair()
	require.NoError(t, err)
	_, err = l.RequestAirdrop(ctx, creator.PublicKey(), funding+ledger.LamportsPerSOL)
	require.NoError(t, err)

	reward := faucet.LamportsFromSOL(0.1)
	ix, err := faucet.NewCreateInstruction(creator.PublicKey(), difficulty, reward, funding)
	require.NoError(t, err)
	tx := ledger.NewTransaction(creator.PublicKey(), 1, ix)
	require.NoError(t, tx.Sign(creator))
	_, err = l.SendTransaction(ctx, tx)
	require.NoError(t, err)

	feePayer, err := solana.NewKeypair()
	require.NoError(t, err)
	_, err = l.RequestAirdrop(ctx, feePayer.PublicKey(), ledger.LamportsPerSOL)
	require.NoError(t, err)

	id, err := faucet.DeriveFaucetIdentity(difficulty, reward)
	require.NoError(t, err)
	return &fixture{ledger: l, feePayer: feePayer, reward: reward, source: id.Source}
}

func testConfig() Config {
	return Config{
		Workers:        2,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func (f *fixture) balance(t *testing.T, addr solana.PublicKey) uint64 {
	t.Helper()
	b, err := f.ledger.GetBalance(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func TestMineReachesTarget(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(10))
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	var found []string
	var paid []*claim.Result
	m := New(f.ledger, f.feePayer, cpu.NewCPUGenerator(2),
		WithConfig(testConfig()),
		WithMetrics(metrics),
		OnFound(func(r generator.Result) { found = append(found, r.Address) }),
		OnClaimed(func(r *claim.Result) { paid = append(paid, r) }),
	)

	report, err := m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward, TargetLamports: faucet.LamportsFromSOL(0.3)})
	require.NoError(t, err)
	assert.Len(t, report.Claims, 3)
	assert.Equal(t, faucet.LamportsFromSOL(0.3), report.Received)
	assert.Len(t, found, 3)
	assert.Equal(t, report.Claims, paid)
	assert.GreaterOrEqual(t, report.Attempts, uint64(3))
	for _, c := range report.Claims {
		assert.True(t, solana.Passes(c.Winner[:], 1))
	}

	assert.Equal(t, faucet.LamportsFromSOL(9.7), f.balance(t, f.source))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Claims.WithLabelValues("paid")))
	assert.Equal(t, float64(faucet.LamportsFromSOL(0.3)), testutil.ToFloat64(metrics.Received))
}

func TestMineRetriesTransientFailures(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(10))
	flaky := &flakyLedger{Ledger: f.ledger, failures: 2}

	m := New(flaky, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(testConfig()))
	report, err := m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward, TargetLamports: f.reward})
	require.NoError(t, err)
	assert.Len(t, report.Claims, 1)
	assert.Equal(t, 2, report.Retries)
	assert.Equal(t, 3, flaky.sends)
	assert.Equal(t, faucet.LamportsFromSOL(9.9), f.balance(t, f.source))
}

func TestMineSettlesAmbiguousSubmission(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(10))
	flaky := &flakyLedger{Ledger: f.ledger, failures: 1, commitFirst: true}

	m := New(flaky, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(testConfig()))
	report, err := m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward, TargetLamports: f.reward})
	require.NoError(t, err)
	require.Len(t, report.Claims, 1)
	assert.NotEmpty(t, report.Claims[0].Signature)
	assert.Zero(t, report.Remined)
	assert.Equal(t, f.reward, report.Received)

	// paid exactly once
	assert.Equal(t, faucet.LamportsFromSOL(9.9), f.balance(t, f.source))
}

func TestMineRetriesExhausted(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(10))
	flaky := &flakyLedger{Ledger: f.ledger, failures: 1000}

	cfg := testConfig()
	cfg.MaxRetries = 2
	m := New(flaky, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(cfg))
	report, err := m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward, TargetLamports: f.reward})
	assert.True(t, errors.Is(err, ErrRetriesExhausted), "got %v", err)
	assert.True(t, errors.Is(err, claim.ErrTransientSubmission))
	assert.Equal(t, 3, flaky.sends)
	assert.Empty(t, report.Claims)
	assert.Equal(t, faucet.LamportsFromSOL(10), f.balance(t, f.source))
}

func TestMineStopsWhenDepleted(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(0.15))

	m := New(f.ledger, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(testConfig()))
	report, err := m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward})
	assert.True(t, errors.Is(err, claim.ErrFaucetDepleted), "got %v", err)
	assert.Len(t, report.Claims, 1)
	assert.Equal(t, faucet.LamportsFromSOL(0.05), f.balance(t, f.source))
}

func TestMineRefusesDepletedFaucetUpFront(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(0.05))

	m := New(f.ledger, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(testConfig()))
	report, err := m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward})
	assert.True(t, errors.Is(err, claim.ErrFaucetDepleted))
	assert.Zero(t, report.Attempts)
}

func TestMineSpecNotFound(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(1))

	m := New(f.ledger, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(testConfig()))
	_, err := m.Mine(context.Background(), Request{Difficulty: 2, Reward: f.reward})
	assert.True(t, errors.Is(err, claim.ErrSpecNotFound), "got %v", err)
}

func TestMineDifficultyFloor(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(1))

	m := New(f.ledger, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(testConfig()))
	_, err := m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward, MinDifficulty: 2})
	assert.True(t, errors.Is(err, ErrBelowDifficultyFloor))
}

// scriptedGenerator hands out the given keypairs in order.
type scriptedGenerator struct {
	keys []*solana.Keypair
}

func (g *scriptedGenerator) Start(ctx context.Context, config *generator.Config) (<-chan generator.Result, error) {
	ch := make(chan generator.Result, 1)
	if len(g.keys) == 0 {
		return ch, nil
	}
	kp := g.keys[0]
	g.keys = g.keys[1:]
	ch <- generator.Result{Keypair: kp, Address: kp.PublicKey().String(), Attempts: 1}
	return ch, nil
}

func (g *scriptedGenerator) Stats() generator.Stats { return generator.Stats{} }
func (g *scriptedGenerator) Name() string           { return "scripted" }

func TestMineRemineAfterAlreadyClaimed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	f := newFixture(t, 1, faucet.LamportsFromSOL(10))

	spent, err := cpu.Search(ctx, 1)
	require.NoError(t, err)
	fresh, err := cpu.Search(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, spent.PublicKey(), fresh.PublicKey())

	// another party claims with the same key first
	rival, err := solana.NewKeypair()
	require.NoError(t, err)
	_, err = f.ledger.RequestAirdrop(ctx, rival.PublicKey(), ledger.LamportsPerSOL)
	require.NoError(t, err)
	_, err = claim.NewClaimer(f.ledger, zerolog.Nop()).Claim(ctx, 1, f.reward, spent, rival)
	require.NoError(t, err)

	gen := &scriptedGenerator{keys: []*solana.Keypair{spent, fresh}}
	m := New(f.ledger, f.feePayer, gen, WithConfig(testConfig()))
	report, err := m.Mine(ctx, Request{Difficulty: 1, Reward: f.reward, TargetLamports: f.reward})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Remined)
	require.Len(t, report.Claims, 1)
	assert.Equal(t, fresh.PublicKey(), report.Claims[0].Winner)
}

func TestMineCancellation(t *testing.T) {
	f := newFixture(t, solana.MaxDifficulty, faucet.LamportsFromSOL(1))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	m := New(f.ledger, f.feePayer, cpu.NewCPUGenerator(2), WithConfig(testConfig()))
	_, err := m.Mine(ctx, Request{Difficulty: solana.MaxDifficulty, Reward: f.reward})
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestMineTopsUpFeePayer(t *testing.T) {
	f := newFixture(t, 1, faucet.LamportsFromSOL(1))
	broke, err := solana.NewKeypair()
	require.NoError(t, err)

	cfg := testConfig()
	cfg.AirdropLamports = ledger.LamportsPerSOL
	m := New(f.ledger, broke, cpu.NewCPUGenerator(2), WithConfig(cfg))
	_, err = m.Mine(context.Background(), Request{Difficulty: 1, Reward: f.reward, TargetLamports: f.reward})
	require.NoError(t, err)

	assert.Equal(t, ledger.LamportsPerSOL+f.reward-2*ledger.FeePerSignature, f.balance(t, broke.PublicKey()))
}

func TestMineChecksTheDirectorySource(t *testing.T) {
	f := newFixture(t, 0, faucet.LamportsFromSOL(1))
	logged := &balanceLog{Ledger: f.ledger}

	m := New(logged, f.feePayer, cpu.NewCPUGenerator(1), WithConfig(testConfig()))
	report, err := m.Mine(context.Background(), Request{Difficulty: 0, Reward: f.reward, TargetLamports: 2 * f.reward})
	require.NoError(t, err)
	assert.Len(t, report.Claims, 2)

	var sourceReads int
	for _, addr := range logged.reads {
		assert.NotEqual(t, solana.PublicKey{}, addr)
		if addr == f.source {
			sourceReads++
		}
	}
	assert.GreaterOrEqual(t, sourceReads, 3)
}
