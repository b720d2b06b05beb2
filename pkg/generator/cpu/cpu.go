package cpu

import (
	"context"
	"crypto/rand"
	"io"
	"runtime"
	"time"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"go.uber.org/atomic"

	"github.com/Amr-9/powfaucet/pkg/generator"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

// CPUGenerator implements the Generator interface using CPU-based goroutines.
// Workers are symmetric: each draws fresh keypairs until one meets the
// difficulty, and the first to flip the shared found flag wins.
type CPUGenerator struct {
	attempts  *atomic.Uint64 // Total attempts of the current search
	startTime *atomic.Time   // When the current search started
	workers   int            // Number of concurrent workers
	entropy   io.Reader
}

// NewCPUGenerator creates a new CPU-based generator.
// If workers is 0, it defaults to the number of CPU cores.
func NewCPUGenerator(workers int) *CPUGenerator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUGenerator{
		attempts:  atomic.NewUint64(0),
		startTime: atomic.NewTime(time.Now()),
		workers:   workers,
		entropy:   rand.Reader,
	}
}

// Name returns the implementation name.
func (g *CPUGenerator) Name() string {
	return "CPU"
}

// Workers returns the default worker count.
func (g *CPUGenerator) Workers() int {
	return g.workers
}

// Stats returns the current performance statistics.
func (g *CPUGenerator) Stats() generator.Stats {
	attempts := g.attempts.Load()
	elapsed := time.Since(g.startTime.Load()).Seconds()

	var hashRate float64
	if elapsed > 0 {
		hashRate = float64(attempts) / elapsed
	}

	return generator.Stats{
		Attempts:    attempts,
		HashRate:    hashRate,
		ElapsedSecs: elapsed,
	}
}

// Start begins the key search with the given configuration.
func (g *CPUGenerator) Start(ctx context.Context, config *generator.Config) (<-chan generator.Result, error) {
	if err := generator.ValidateDifficulty(config.Difficulty); err != nil {
		return nil, err
	}

	resultChan := make(chan generator.Result, 1)
	g.startTime.Store(time.Now())
	g.attempts.Store(0)

	workers := g.workers
	if config.Workers > 0 {
		workers = config.Workers
	}

	found := atomic.NewBool(false)
	matcher := solana.NewDifficultyMatcher(config.Difficulty)
	for i := 0; i < workers; i++ {
		go g.worker(ctx, matcher, found, resultChan)
	}

	return resultChan, nil
}

// worker generates Solana keypairs (Ed25519 + Base58) until one matches,
// another worker wins, or ctx is cancelled. Rejected candidates are dropped
// immediately.
func (g *CPUGenerator) worker(ctx context.Context, matcher *solana.DifficultyMatcher, found *atomic.Bool, resultChan chan<- generator.Result) {
	for {
		if found.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		pubKey, privKey, err := ed25519.GenerateKey(g.entropy)
		if err != nil {
			continue
		}

		attempts := g.attempts.Inc()

		if !matcher.Matches(pubKey) {
			continue
		}

		if !found.CompareAndSwap(false, true) {
			return
		}

		kp, err := solana.KeypairFromBytes(privKey)
		if err != nil {
			// cannot happen for a freshly generated key; let the search go on
			found.Store(false)
			continue
		}

		resultChan <- generator.Result{
			Keypair:    kp,
			Address:    kp.PublicKey().String(),
			PrivateKey: kp.PrivateKeyBase58(),
			Attempts:   attempts,
		}
		return
	}
}

// Search mines a keypair meeting difficulty on all CPU cores. It blocks until
// a key is found or ctx is cancelled.
func Search(ctx context.Context, difficulty uint8) (*solana.Keypair, error) {
	result, err := generator.Search(ctx, NewCPUGenerator(0), &generator.Config{Difficulty: difficulty})
	if err != nil {
		return nil, err
	}
	return result.Keypair, nil
}
