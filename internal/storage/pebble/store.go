// Package pebble stores pools and positions in an embedded Pebble database.
package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/model"
	"ammCore/internal/storage"
)

var ErrDBClosed = errors.New("database is closed")

var (
	poolPrefix     = []byte("pool/")
	positionPrefix = []byte("pos/")
)

// Store implements storage.Store on Pebble. Each Commit is one synced batch.
type Store struct {
	db *pebble.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens or creates the database in dir. fs may be nil for the OS filesystem.
func Open(dir string, fs vfs.FS) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("pebble dir is required")
	}
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func poolKey(id common.Hash) []byte {
	key := make([]byte, 0, len(poolPrefix)+common.HashLength)
	key = append(key, poolPrefix...)
	return append(key, id.Bytes()...)
}

func positionPoolPrefix(poolID common.Hash) []byte {
	key := make([]byte, 0, len(positionPrefix)+common.HashLength+common.AddressLength)
	key = append(key, positionPrefix...)
	return append(key, poolID.Bytes()...)
}

func positionKey(poolID common.Hash, owner common.Address) []byte {
	return append(positionPoolPrefix(poolID), owner.Bytes()...)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *Store) get(key []byte, dst interface{}) (bool, error) {
	if s.db == nil {
		return false, ErrDBClosed
	}
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer closer.Close()

	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) scan(prefix []byte, fn func(val []byte) error) error {
	if s.db == nil {
		return ErrDBClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *Store) LoadPool(_ context.Context, id common.Hash) (model.Pool, bool, error) {
	var pool model.Pool
	ok, err := s.get(poolKey(id), &pool)
	if err != nil || !ok {
		return model.Pool{}, false, err
	}
	return pool, true, nil
}

func (s *Store) ListPools(_ context.Context) ([]model.Pool, error) {
	var pools []model.Pool
	err := s.scan(poolPrefix, func(val []byte) error {
		var pool model.Pool
		if err := json.Unmarshal(val, &pool); err != nil {
			return fmt.Errorf("decode pool: %w", err)
		}
		pools = append(pools, pool)
		return nil
	})
	if err != nil {
		return nil, err
	}
	storage.SortPools(pools)
	return pools, nil
}

func (s *Store) LoadPosition(_ context.Context, poolID common.Hash, owner common.Address) (model.LiquidityPosition, bool, error) {
	var pos model.LiquidityPosition
	ok, err := s.get(positionKey(poolID, owner), &pos)
	if err != nil || !ok {
		return model.LiquidityPosition{}, false, err
	}
	return pos, true, nil
}

// ListPositions returns the positions of a pool ordered by owner.
func (s *Store) ListPositions(_ context.Context, poolID common.Hash) ([]model.LiquidityPosition, error) {
	var positions []model.LiquidityPosition
	err := s.scan(positionPoolPrefix(poolID), func(val []byte) error {
		var pos model.LiquidityPosition
		if err := json.Unmarshal(val, &pos); err != nil {
			return fmt.Errorf("decode position: %w", err)
		}
		positions = append(positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *Store) Commit(ctx context.Context, m storage.Mutation) error {
	if s.db == nil {
		return ErrDBClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	poolVal, err := json.Marshal(m.Pool)
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	if err := batch.Set(poolKey(m.Pool.ID), poolVal, nil); err != nil {
		return err
	}

	if m.Position != nil {
		key := positionKey(m.Position.PoolID, m.Position.Owner)
		if m.Position.Units == 0 {
			if err := batch.Delete(key, nil); err != nil {
				return err
			}
		} else {
			posVal, err := json.Marshal(m.Position)
			if err != nil {
				return fmt.Errorf("encode position: %w", err)
			}
			if err := batch.Set(key, posVal, nil); err != nil {
				return err
			}
		}
	}

	return batch.Commit(pebble.Sync)
}
