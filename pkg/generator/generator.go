// Package generator defines the interface for proof-of-work key search.
// A search produces an ed25519 keypair whose Base58 address starts with the
// faucet's sentinel character repeated difficulty times. The design allows
// swapping search backends without touching the claim pipeline.
package generator

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

// ErrUnreachableDifficulty is returned when no 32-byte address can render
// with that many leading sentinel characters.
var ErrUnreachableDifficulty = errors.New("difficulty exceeds the longest possible address rendering")

// Config holds the configuration for a key search.
type Config struct {
	Difficulty uint8 // Required number of leading sentinel characters
	Workers    int   // Number of concurrent workers
}

// Result contains a keypair that satisfies the difficulty.
type Result struct {
	Keypair    *solana.Keypair
	Address    string // Base58 address
	PrivateKey string // Base58 seed||public, the form wallets import
	Attempts   uint64 // Candidates generated by all workers up to the find
}

// Stats holds real-time performance statistics.
type Stats struct {
	Attempts    uint64  // Total number of keypairs generated
	HashRate    float64 // Current keypairs per second
	ElapsedSecs float64 // Time elapsed since start
}

// Generator defines the contract for key search backends.
type Generator interface {
	// Start begins the search with the given configuration.
	// It returns a channel that receives exactly one result when found.
	// The search can be cancelled via the context.
	Start(ctx context.Context, config *Config) (<-chan Result, error)

	// Stats returns the current performance statistics.
	// This method is safe to call concurrently from any goroutine.
	Stats() Stats

	// Name returns the implementation name (e.g., "CPU").
	Name() string
}

// ValidateDifficulty rejects difficulties no address can meet.
func ValidateDifficulty(difficulty uint8) error {
	if difficulty > solana.MaxDifficulty {
		return errors.Wrapf(ErrUnreachableDifficulty, "difficulty %d > %d", difficulty, solana.MaxDifficulty)
	}
	return nil
}

// Search runs gen until it finds a qualifying keypair or ctx is done.
// The remaining workers are stopped before Search returns.
func Search(ctx context.Context, gen Generator, config *Config) (Result, error) {
	if err := ValidateDifficulty(config.Difficulty); err != nil {
		return Result{}, err
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultChan, err := gen.Start(searchCtx, config)
	if err != nil {
		return Result{}, errors.Wrapf(err, "start %s search", gen.Name())
	}

	select {
	case result := <-resultChan:
		return result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
