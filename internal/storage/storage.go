package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/model"
)

// Mutation is the write set of one pool operation. Position is nil when the
// operation does not touch a position; a position with zero units is deleted.
type Mutation struct {
	Pool     model.Pool
	Position *model.LiquidityPosition
}

// Store is durable keyed storage for pools and liquidity positions. Commit
// applies a whole Mutation or nothing. Commit writes absolute values, so
// retrying a failed commit is safe.
type Store interface {
	LoadPool(ctx context.Context, id common.Hash) (model.Pool, bool, error)
	ListPools(ctx context.Context) ([]model.Pool, error)
	LoadPosition(ctx context.Context, poolID common.Hash, owner common.Address) (model.LiquidityPosition, bool, error)
	ListPositions(ctx context.Context, poolID common.Hash) ([]model.LiquidityPosition, error)
	Commit(ctx context.Context, m Mutation) error
	Close() error
}
