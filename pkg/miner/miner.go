// Package miner drives the search-then-claim loop against one faucet until
// a target amount has been received or the faucet can no longer pay.
package miner

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/Amr-9/powfaucet/pkg/claim"
	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

const (
	// DefaultTargetLamports is received when a request names no target.
	DefaultTargetLamports = ledger.LamportsPerSOL

	// DefaultMaxRetries bounds resubmissions of one claim.
	DefaultMaxRetries = 5

	// DefaultAirdropLamports is requested for a fee payer that cannot cover one fee.
	DefaultAirdropLamports = ledger.LamportsPerSOL
)

var (
	// ErrRetriesExhausted marks a transient failure that outlived the retry budget.
	ErrRetriesExhausted = errors.New("claim retries exhausted")

	// ErrBelowDifficultyFloor is returned for requests under the configured floor.
	ErrBelowDifficultyFloor = errors.New("difficulty below configured floor")
)

// Config tunes a Miner.
type Config struct {
	Workers         int
	MaxRetries      uint64
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	AirdropLamports uint64 // 0 disables topping up the fee payer
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialBackoff:  500 * time.Millisecond,
		MaxBackoff:      10 * time.Second,
		AirdropLamports: DefaultAirdropLamports,
	}
}

// Request names the faucet to mine and how much to collect.
type Request struct {
	Difficulty     uint8
	Reward         uint64
	TargetLamports uint64
	MinDifficulty  uint8
}

// Report summarizes a run. It is returned alongside any error.
type Report struct {
	Claims   []*claim.Result
	Received uint64
	Attempts uint64
	Remined  int
	Retries  int
}

// Option configures a Miner.
type Option func(*Miner)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Miner) { m.logger = logger }
}

// WithGenerator replaces the search backend.
func WithGenerator(gen generator.Generator) Option {
	return func(m *Miner) { m.gen = gen }
}

// WithMetrics records run statistics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Miner) { m.metrics = metrics }
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(m *Miner) { m.cfg = cfg }
}

// OnFound is called with every qualifying keypair before it is claimed.
func OnFound(fn func(generator.Result)) Option {
	return func(m *Miner) { m.onFound = fn }
}

// OnClaimed is called with every paid claim.
func OnClaimed(fn func(*claim.Result)) Option {
	return func(m *Miner) { m.onClaimed = fn }
}

// Miner mines keypairs and claims rewards with them.
type Miner struct {
	ledger    ledger.Ledger
	directory *faucet.Directory
	claimer   *claim.Claimer
	gen       generator.Generator
	feePayer  *solana.Keypair
	cfg       Config
	logger    zerolog.Logger
	metrics   *Metrics
	onFound   func(generator.Result)
	onClaimed func(*claim.Result)
}

// New creates a Miner that receives rewards into feePayer. gen is required;
// callers normally pass cpu.NewCPUGenerator.
func New(l ledger.Ledger, feePayer *solana.Keypair, gen generator.Generator, opts ...Option) *Miner {
	m := &Miner{
		ledger:   l,
		gen:      gen,
		feePayer: feePayer,
		cfg:      DefaultConfig(),
		logger:   zerolog.Nop(),
		metrics:  NewMetrics(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "miner").Logger()
	m.directory = faucet.NewDirectory(l, 0)
	m.claimer = claim.NewClaimer(l, m.logger)
	return m
}

// Stats reports the progress of the running search.
func (m *Miner) Stats() generator.Stats {
	return m.gen.Stats()
}

// Mine searches and claims until req.TargetLamports have been received.
// AlreadyClaimed leads to a fresh search; transient failures are retried
// with the same key; any terminal classification ends the run.
func (m *Miner) Mine(ctx context.Context, req Request) (*Report, error) {
	report := &Report{}

	if req.Difficulty < req.MinDifficulty {
		return report, errors.Wrapf(ErrBelowDifficultyFloor, "difficulty %d, floor %d", req.Difficulty, req.MinDifficulty)
	}
	if err := generator.ValidateDifficulty(req.Difficulty); err != nil {
		return report, err
	}
	target := req.TargetLamports
	if target == 0 {
		target = DefaultTargetLamports
	}

	f, err := m.directory.Get(ctx, req.Difficulty, req.Reward)
	if err != nil {
		return report, err
	}
	if f.Depleted() {
		return report, errors.Wrapf(claim.ErrFaucetDepleted, "source %s holds %s SOL", f.Source, faucet.FormatSOL(f.Balance))
	}
	if err := m.ensureFeePayer(ctx); err != nil {
		return report, err
	}

	log := m.logger.With().Uint8("difficulty", req.Difficulty).Str("reward", faucet.FormatSOL(req.Reward)).Logger()
	log.Info().Str("faucet", f.Source).Float64("expected_attempts", solana.ExpectedAttempts(req.Difficulty)).
		Str("target", faucet.FormatSOL(target)).Msg("mining")

	for report.Received < target {
		found, err := generator.Search(ctx, m.gen, &generator.Config{Difficulty: req.Difficulty, Workers: m.cfg.Workers})
		if err != nil {
			return report, err
		}
		report.Attempts += found.Attempts
		m.metrics.Attempts.Add(float64(found.Attempts))
		m.metrics.HashRate.Set(m.gen.Stats().HashRate)
		log.Info().Str("address", found.Address).Uint64("attempts", found.Attempts).Msg("keypair mined")
		if m.onFound != nil {
			m.onFound(found)
		}

		result, err := m.settle(ctx, req, f.Identity.Source, found.Keypair, report)
		switch {
		case err == nil:
			report.Claims = append(report.Claims, result)
			report.Received += result.Amount
			m.metrics.Claims.WithLabelValues("paid").Inc()
			m.metrics.Received.Add(float64(result.Amount))
			if m.onClaimed != nil {
				m.onClaimed(result)
			}
		case errors.Is(err, claim.ErrAlreadyClaimed):
			report.Remined++
			m.metrics.Claims.WithLabelValues("already_claimed").Inc()
			log.Warn().Str("address", found.Address).Msg("proof already claimed, mining another key")
		default:
			m.metrics.Claims.WithLabelValues(outcome(err)).Inc()
			return report, err
		}
	}

	log.Info().Int("claims", len(report.Claims)).Str("received", faucet.FormatSOL(report.Received)).Msg("target reached")
	return report, nil
}

// settle submits one claim for winner, replaying the identical transaction
// on transient failures. A receipt collision after an ambiguous attempt means
// that attempt committed, since only this process holds the key.
func (m *Miner) settle(ctx context.Context, req Request, source solana.PublicKey, winner *solana.Keypair, report *Report) (*claim.Result, error) {
	if balance, err := m.ledger.GetBalance(ctx, source); err == nil && balance < req.Reward {
		return nil, errors.Wrapf(claim.ErrFaucetDepleted, "source holds %s SOL", faucet.FormatSOL(balance))
	}

	tx, result, err := m.claimer.BuildTransaction(req.Difficulty, req.Reward, winner, m.feePayer)
	if err != nil {
		return nil, err
	}

	ambiguous := false
	attempts := 0
	op := func() error {
		attempts++
		sig, err := m.claimer.Submit(ctx, tx)
		switch {
		case err == nil:
			result.Signature = sig
			return nil
		case ambiguous && errors.Is(err, claim.ErrAlreadyClaimed):
			result.Signature = tx.Reference()
			m.logger.Info().Str("signature", result.Signature).Msg("earlier submission committed")
			return nil
		case claim.IsRetryable(err):
			ambiguous = true
			m.logger.Warn().Err(err).Int("attempt", attempts).Msg("claim submission failed, retrying")
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	notify := func(error, time.Duration) {
		report.Retries++
		m.metrics.Retries.Inc()
	}

	err = backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(m.newBackOff(), m.cfg.MaxRetries), ctx), notify)
	if err == nil {
		return result, nil
	}
	if claim.IsRetryable(err) {
		return nil, errors.Mark(errors.Wrapf(err, "claim not settled after %d attempts", attempts), ErrRetriesExhausted)
	}
	return nil, err
}

func (m *Miner) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if m.cfg.InitialBackoff > 0 {
		b.InitialInterval = m.cfg.InitialBackoff
	}
	if m.cfg.MaxBackoff > 0 {
		b.MaxInterval = m.cfg.MaxBackoff
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// ensureFeePayer tops up a fee payer that cannot pay for one claim.
func (m *Miner) ensureFeePayer(ctx context.Context) error {
	if m.cfg.AirdropLamports == 0 {
		return nil
	}
	balance, err := m.ledger.GetBalance(ctx, m.feePayer.PublicKey())
	if err != nil {
		return errors.Wrap(err, "fetch fee payer balance")
	}
	if balance >= 2*ledger.FeePerSignature {
		return nil
	}
	sig, err := m.ledger.RequestAirdrop(ctx, m.feePayer.PublicKey(), m.cfg.AirdropLamports)
	if err != nil {
		return errors.Wrap(err, "airdrop to fee payer")
	}
	m.logger.Info().Str("address", m.feePayer.PublicKey().String()).Str("signature", sig).Msg("fee payer topped up")
	return nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, claim.ErrFaucetDepleted):
		return "depleted"
	case errors.Is(err, claim.ErrUnauthorizedSigner):
		return "unauthorized"
	case errors.Is(err, claim.ErrFeePayerRejected):
		return "fee_payer_rejected"
	case errors.Is(err, claim.ErrSpecNotFound):
		return "spec_not_found"
	case errors.Is(err, ErrRetriesExhausted):
		return "retries_exhausted"
	default:
		return "error"
	}
}
