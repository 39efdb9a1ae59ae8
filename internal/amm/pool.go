// Package amm implements constant-product pool math: pool validation, the
// liquidity engine and the swap engine.
//
// Engine functions are pure. They take a pool snapshot by value and return the
// updated snapshot, so a failed call leaves the caller's copy untouched and the
// caller persists the result only on success.
package amm

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"ammCore/internal/fixedpoint"
	"ammCore/internal/model"
)

// State is the lifecycle state of a pool.
type State string

const (
	StateEmpty  State = "empty"
	StateFunded State = "funded"
)

// Params are fixed when a pool is created.
type Params struct {
	FeeRateBps       uint32
	MinimumLiquidity uint64
}

// Validate checks that the fee rate is in [0, 10000).
func (p Params) Validate() error {
	if p.FeeRateBps >= fixedpoint.BpsDenominator {
		return fmt.Errorf("%w: %d bps, must be below %d", ErrInvalidFeeRate, p.FeeRateBps, fixedpoint.BpsDenominator)
	}
	return nil
}

// CanonicalPair orders two tokens so that (x, y) and (y, x) give the same result.
func CanonicalPair(x, y common.Address) (common.Address, common.Address, error) {
	if x == (common.Address{}) || y == (common.Address{}) {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidPair)
	}
	switch bytes.Compare(x.Bytes(), y.Bytes()) {
	case 0:
		return common.Address{}, common.Address{}, fmt.Errorf("%w: identical tokens %s", ErrInvalidPair, x.Hex())
	case 1:
		return y, x, nil
	default:
		return x, y, nil
	}
}

// PoolID derives the pool identifier from a pair in either order.
func PoolID(x, y common.Address) (common.Hash, error) {
	a, b, err := CanonicalPair(x, y)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes()), nil
}

// NewPool returns an empty pool for the pair.
func NewPool(x, y common.Address, params Params, now int64) (model.Pool, error) {
	if err := params.Validate(); err != nil {
		return model.Pool{}, err
	}
	a, b, err := CanonicalPair(x, y)
	if err != nil {
		return model.Pool{}, err
	}
	return model.Pool{
		ID:               crypto.Keccak256Hash(a.Bytes(), b.Bytes()),
		TokenA:           a,
		TokenB:           b,
		FeeRateBps:       params.FeeRateBps,
		MinimumLiquidity: params.MinimumLiquidity,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// PoolState reports whether the pool is empty or funded.
func PoolState(p model.Pool) State {
	if p.LiquiditySupply == 0 {
		return StateEmpty
	}
	return StateFunded
}

// Validate checks that the pool is either fully empty or fully funded.
func Validate(p model.Pool) error {
	emptyA := p.ReserveA == 0
	emptyB := p.ReserveB == 0
	emptySupply := p.LiquiditySupply == 0
	if emptyA != emptyB || emptyA != emptySupply {
		return fmt.Errorf("%w: pool %s reserves %d/%d supply %d",
			ErrInvariantViolation, p.ID.Hex(), p.ReserveA, p.ReserveB, p.LiquiditySupply)
	}
	if p.FeeRateBps >= fixedpoint.BpsDenominator {
		return fmt.Errorf("%w: pool %s fee %d bps", ErrInvariantViolation, p.ID.Hex(), p.FeeRateBps)
	}
	return nil
}

// orient returns (reserveIn, reserveOut, aIsInput) for a swap of token into p.
func orient(p model.Pool, token common.Address) (uint64, uint64, bool, error) {
	switch token {
	case p.TokenA:
		return p.ReserveA, p.ReserveB, true, nil
	case p.TokenB:
		return p.ReserveB, p.ReserveA, false, nil
	default:
		return 0, 0, false, fmt.Errorf("%w: token %s not in pool %s", ErrInvalidPair, token.Hex(), p.ID.Hex())
	}
}
