// Package registry maps token pairs to pools. It is the only place pools are
// created and it hands out per-pool locks.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/model"
	"ammCore/internal/storage"
)

// Registry locates and creates pools in a Store. There is at most one pool per
// unordered token pair.
type Registry struct {
	store  storage.Store
	logger *zap.Logger
	now    func() int64

	mu    sync.Mutex
	locks map[common.Hash]*sync.Mutex
}

func New(store storage.Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:  store,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
		locks:  make(map[common.Hash]*sync.Mutex),
	}
}

// Lock takes the exclusive lock of a pool and returns its release function.
// Locks of different pools are independent.
func (r *Registry) Lock(id common.Hash) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// PoolIDFor returns the id of the pool for a pair, whether or not it exists.
func (r *Registry) PoolIDFor(x, y common.Address) (common.Hash, error) {
	return amm.PoolID(x, y)
}

// GetOrCreatePool returns the pool for the pair, creating an empty one with
// params when none exists. params only matter on creation: for an existing
// pool they are ignored and never validated.
func (r *Registry) GetOrCreatePool(ctx context.Context, x, y common.Address, params amm.Params) (model.Pool, bool, error) {
	id, err := amm.PoolID(x, y)
	if err != nil {
		return model.Pool{}, false, err
	}

	unlock := r.Lock(id)
	defer unlock()

	existing, ok, err := r.store.LoadPool(ctx, id)
	if err != nil {
		return model.Pool{}, false, fmt.Errorf("load pool %s: %w", id.Hex(), err)
	}
	if ok {
		return existing, false, nil
	}

	pool, err := amm.NewPool(x, y, params, r.now())
	if err != nil {
		return model.Pool{}, false, err
	}
	if err := r.store.Commit(ctx, storage.Mutation{Pool: pool}); err != nil {
		return model.Pool{}, false, fmt.Errorf("create pool %s: %w", id.Hex(), err)
	}

	r.logger.Info("pool created",
		zap.String("pool", id.Hex()),
		zap.String("token_a", pool.TokenA.Hex()),
		zap.String("token_b", pool.TokenB.Hex()),
		zap.Uint32("fee_bps", pool.FeeRateBps),
		zap.Uint64("minimum_liquidity", pool.MinimumLiquidity),
	)
	return pool, true, nil
}

// GetPool returns the pool with id or amm.ErrPoolNotFound.
func (r *Registry) GetPool(ctx context.Context, id common.Hash) (model.Pool, error) {
	pool, ok, err := r.store.LoadPool(ctx, id)
	if err != nil {
		return model.Pool{}, fmt.Errorf("load pool %s: %w", id.Hex(), err)
	}
	if !ok {
		return model.Pool{}, fmt.Errorf("%w: %s", amm.ErrPoolNotFound, id.Hex())
	}
	return pool, nil
}

func (r *Registry) ListPools(ctx context.Context) ([]model.Pool, error) {
	return r.store.ListPools(ctx)
}
