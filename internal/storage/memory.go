package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/model"
)

type positionKey struct {
	pool  common.Hash
	owner common.Address
}

// MemoryStore keeps pools and positions in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	pools     map[common.Hash]model.Pool
	positions map[positionKey]model.LiquidityPosition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:     make(map[common.Hash]model.Pool),
		positions: make(map[positionKey]model.LiquidityPosition),
	}
}

func (s *MemoryStore) LoadPool(_ context.Context, id common.Hash) (model.Pool, bool, error) {
	s.mu.RLock()
	pool, ok := s.pools[id]
	s.mu.RUnlock()
	return pool, ok, nil
}

func (s *MemoryStore) ListPools(_ context.Context) ([]model.Pool, error) {
	s.mu.RLock()
	out := make([]model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool)
	}
	s.mu.RUnlock()
	SortPools(out)
	return out, nil
}

func (s *MemoryStore) LoadPosition(_ context.Context, poolID common.Hash, owner common.Address) (model.LiquidityPosition, bool, error) {
	s.mu.RLock()
	pos, ok := s.positions[positionKey{pool: poolID, owner: owner}]
	s.mu.RUnlock()
	return pos, ok, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, poolID common.Hash) ([]model.LiquidityPosition, error) {
	s.mu.RLock()
	var out []model.LiquidityPosition
	for key, pos := range s.positions {
		if key.pool == poolID {
			out = append(out, pos)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Owner.Bytes(), out[j].Owner.Bytes()) < 0
	})
	return out, nil
}

func (s *MemoryStore) Commit(ctx context.Context, m Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools[m.Pool.ID] = m.Pool
	if m.Position != nil {
		key := positionKey{pool: m.Position.PoolID, owner: m.Position.Owner}
		if m.Position.Units == 0 {
			delete(s.positions, key)
		} else {
			s.positions[key] = *m.Position
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// SortPools orders pools by creation time, then id.
func SortPools(pools []model.Pool) {
	sort.Slice(pools, func(i, j int) bool {
		if pools[i].CreatedAt != pools[j].CreatedAt {
			return pools[i].CreatedAt < pools[j].CreatedAt
		}
		return bytes.Compare(pools[i].ID.Bytes(), pools[j].ID.Bytes()) < 0
	})
}
