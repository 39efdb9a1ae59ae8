// Package storagetest checks that a storage.Store backend behaves like the
// in-memory reference.
package storagetest

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/model"
	"ammCore/internal/storage"
)

var (
	tokenA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x2000000000000000000000000000000000000002")
	tokenC = common.HexToAddress("0x3000000000000000000000000000000000000003")
	alice  = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob    = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
)

func samplePool(id common.Hash, a, b common.Address, created int64) model.Pool {
	return model.Pool{
		ID:               id,
		TokenA:           a,
		TokenB:           b,
		ReserveA:         1000,
		ReserveB:         18_000_000_000_000_000_000,
		LiquiditySupply:  4242,
		FeeRateBps:       30,
		MinimumLiquidity: 10,
		CreatedAt:        created,
		UpdatedAt:        created + 5,
	}
}

// Run exercises a fresh Store returned by open.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("MissingRecords", func(t *testing.T) {
		s := open(t)
		if _, ok, err := s.LoadPool(ctx, common.HexToHash("0x01")); err != nil || ok {
			t.Fatalf("expected missing pool, got ok=%v err=%v", ok, err)
		}
		if _, ok, err := s.LoadPosition(ctx, common.HexToHash("0x01"), alice); err != nil || ok {
			t.Fatalf("expected missing position, got ok=%v err=%v", ok, err)
		}
		pools, err := s.ListPools(ctx)
		if err != nil || len(pools) != 0 {
			t.Fatalf("expected no pools, got %d err=%v", len(pools), err)
		}
	})

	t.Run("CommitPoolAndPosition", func(t *testing.T) {
		s := open(t)
		id := common.HexToHash("0x0a")
		pool := samplePool(id, tokenA, tokenB, 100)
		pos := model.LiquidityPosition{PoolID: id, Owner: alice, Units: 4232}
		if err := s.Commit(ctx, storage.Mutation{Pool: pool, Position: &pos}); err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		got, ok, err := s.LoadPool(ctx, id)
		if err != nil || !ok {
			t.Fatalf("load pool: ok=%v err=%v", ok, err)
		}
		if got != pool {
			t.Fatalf("pool mismatch:\n got %+v\nwant %+v", got, pool)
		}
		gotPos, ok, err := s.LoadPosition(ctx, id, alice)
		if err != nil || !ok {
			t.Fatalf("load position: ok=%v err=%v", ok, err)
		}
		if gotPos != pos {
			t.Fatalf("position mismatch: got %+v want %+v", gotPos, pos)
		}
	})

	t.Run("ZeroUnitsDeletesPosition", func(t *testing.T) {
		s := open(t)
		id := common.HexToHash("0x0b")
		pool := samplePool(id, tokenA, tokenB, 100)
		for _, owner := range []common.Address{alice, bob} {
			pos := model.LiquidityPosition{PoolID: id, Owner: owner, Units: 7}
			if err := s.Commit(ctx, storage.Mutation{Pool: pool, Position: &pos}); err != nil {
				t.Fatalf("commit failed: %v", err)
			}
		}
		gone := model.LiquidityPosition{PoolID: id, Owner: alice}
		if err := s.Commit(ctx, storage.Mutation{Pool: pool, Position: &gone}); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
		if _, ok, err := s.LoadPosition(ctx, id, alice); err != nil || ok {
			t.Fatalf("expected deleted position, got ok=%v err=%v", ok, err)
		}
		positions, err := s.ListPositions(ctx, id)
		if err != nil {
			t.Fatalf("list positions: %v", err)
		}
		if len(positions) != 1 || positions[0].Owner != bob {
			t.Fatalf("unexpected positions: %+v", positions)
		}
	})

	t.Run("CommitIsIdempotent", func(t *testing.T) {
		s := open(t)
		id := common.HexToHash("0x0c")
		pool := samplePool(id, tokenA, tokenB, 100)
		pos := model.LiquidityPosition{PoolID: id, Owner: bob, Units: 11}
		for i := 0; i < 2; i++ {
			if err := s.Commit(ctx, storage.Mutation{Pool: pool, Position: &pos}); err != nil {
				t.Fatalf("commit %d failed: %v", i, err)
			}
		}
		positions, err := s.ListPositions(ctx, id)
		if err != nil || len(positions) != 1 || positions[0].Units != 11 {
			t.Fatalf("unexpected positions: %+v err=%v", positions, err)
		}
	})

	t.Run("ListPoolsOrdered", func(t *testing.T) {
		s := open(t)
		second := samplePool(common.HexToHash("0x02"), tokenB, tokenC, 200)
		first := samplePool(common.HexToHash("0x01"), tokenA, tokenB, 100)
		first.Halted = true
		tied := samplePool(common.HexToHash("0x03"), tokenA, tokenC, 200)
		for _, p := range []model.Pool{tied, second, first} {
			if err := s.Commit(ctx, storage.Mutation{Pool: p}); err != nil {
				t.Fatalf("commit failed: %v", err)
			}
		}
		pools, err := s.ListPools(ctx)
		if err != nil {
			t.Fatalf("list pools: %v", err)
		}
		if len(pools) != 3 || pools[0] != first || pools[1] != second || pools[2] != tied {
			t.Fatalf("unexpected pools: %+v", pools)
		}
	})
}
