package model

import "github.com/ethereum/go-ethereum/common"

// Pool is the persisted state of one constant-product pool.
type Pool struct {
	ID               common.Hash    `json:"id"`
	TokenA           common.Address `json:"token_a"`
	TokenB           common.Address `json:"token_b"`
	ReserveA         uint64         `json:"reserve_a"`
	ReserveB         uint64         `json:"reserve_b"`
	LiquiditySupply  uint64         `json:"liquidity_supply"`
	FeeRateBps       uint32         `json:"fee_rate_bps"`
	MinimumLiquidity uint64         `json:"minimum_liquidity"`
	Halted           bool           `json:"halted"`
	CreatedAt        int64          `json:"created_at"`
	UpdatedAt        int64          `json:"updated_at"`
}

// HasToken reports whether token is one side of the pool.
func (p Pool) HasToken(token common.Address) bool {
	return token == p.TokenA || token == p.TokenB
}
