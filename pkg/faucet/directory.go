package faucet

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jellydator/ttlcache/v3"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

// DefaultSpecTTL bounds how long a confirmed spec is remembered.
const DefaultSpecTTL = 10 * time.Minute

// Faucet is a spec together with its current funding.
type Faucet struct {
	Spec     Spec     `json:"spec"`
	Identity Identity `json:"-"`
	Address  string   `json:"address"`
	Source   string   `json:"source"`
	Balance  uint64   `json:"balance"`
}

// Depleted reports whether the source can no longer pay one reward.
func (f *Faucet) Depleted() bool {
	return f.Balance < f.Spec.Reward
}

// Directory looks faucets up on a ledger. Specs are immutable once created,
// so positive lookups are cached; balances are always read live.
type Directory struct {
	ledger ledger.Ledger
	specs  *ttlcache.Cache[solana.PublicKey, Spec]
}

// NewDirectory creates a directory over l. A ttl of 0 uses DefaultSpecTTL.
func NewDirectory(l ledger.Ledger, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultSpecTTL
	}
	return &Directory{
		ledger: l,
		specs: ttlcache.New[solana.PublicKey, Spec](
			ttlcache.WithTTL[solana.PublicKey, Spec](ttl),
			ttlcache.WithDisableTouchOnHit[solana.PublicKey, Spec](),
		),
	}
}

// Lookup confirms that the (difficulty, reward) faucet exists and returns its
// identity. It returns ErrSpecNotFound otherwise.
func (d *Directory) Lookup(ctx context.Context, difficulty uint8, reward uint64) (Identity, error) {
	id, err := DeriveFaucetIdentity(difficulty, reward)
	if err != nil {
		return Identity{}, err
	}
	if item := d.specs.Get(id.Spec); item != nil {
		return id, nil
	}

	acc, err := d.ledger.GetAccount(ctx, id.Spec)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return Identity{}, errors.Wrapf(ErrSpecNotFound, "difficulty %d reward %s SOL", difficulty, FormatSOL(reward))
	}
	if err != nil {
		return Identity{}, errors.Wrapf(err, "fetch spec %s", id.Spec)
	}
	spec, err := decodeSpecAccount(acc)
	if err != nil {
		return Identity{}, err
	}
	if spec.Difficulty != difficulty || spec.Reward != reward {
		return Identity{}, errors.Wrapf(ErrInvalidSpec, "spec %s holds difficulty %d reward %d", id.Spec, spec.Difficulty, spec.Reward)
	}

	d.specs.Set(id.Spec, spec, ttlcache.DefaultTTL)
	return id, nil
}

// Get returns the faucet with its live balance.
func (d *Directory) Get(ctx context.Context, difficulty uint8, reward uint64) (*Faucet, error) {
	id, err := d.Lookup(ctx, difficulty, reward)
	if err != nil {
		return nil, err
	}
	return d.withBalance(ctx, Spec{Difficulty: difficulty, Reward: reward}, id)
}

// List returns every faucet on the ledger ordered by difficulty, then reward.
func (d *Directory) List(ctx context.Context) ([]*Faucet, error) {
	accounts, err := d.ledger.AccountsByOwner(ctx, ProgramID)
	if err != nil {
		return nil, errors.Wrap(err, "list faucet program accounts")
	}

	var faucets []*Faucet
	for _, acc := range accounts {
		if len(acc.Data) != SpecDataSize {
			continue
		}
		spec, err := decodeSpecAccount(acc)
		if err != nil {
			continue
		}
		id, err := DeriveFaucetIdentity(spec.Difficulty, spec.Reward)
		if err != nil || id.Spec != acc.Address {
			continue
		}
		d.specs.Set(id.Spec, spec, ttlcache.DefaultTTL)

		f, err := d.withBalance(ctx, spec, id)
		if err != nil {
			return nil, err
		}
		faucets = append(faucets, f)
	}

	sort.Slice(faucets, func(i, j int) bool {
		if faucets[i].Spec.Difficulty != faucets[j].Spec.Difficulty {
			return faucets[i].Spec.Difficulty < faucets[j].Spec.Difficulty
		}
		return faucets[i].Spec.Reward < faucets[j].Spec.Reward
	})
	return faucets, nil
}

func (d *Directory) withBalance(ctx context.Context, spec Spec, id Identity) (*Faucet, error) {
	balance, err := d.ledger.GetBalance(ctx, id.Source)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch balance of %s", id.Source)
	}
	return &Faucet{
		Spec:     spec,
		Identity: id,
		Address:  id.Spec.String(),
		Source:   id.Source.String(),
		Balance:  balance,
	}, nil
}

func decodeSpecAccount(acc *ledger.Account) (Spec, error) {
	var spec Spec
	if acc.Owner != ProgramID {
		return spec, errors.Wrapf(ErrInvalidSpec, "%s is not owned by the faucet program", acc.Address)
	}
	if err := spec.UnmarshalBinary(acc.Data); err != nil {
		return spec, errors.Wrapf(err, "decode spec %s", acc.Address)
	}
	return spec, nil
}
