package model

import "github.com/ethereum/go-ethereum/common"

// LiquidityPosition is a caller's claim on a pool, keyed by (PoolID, Owner).
type LiquidityPosition struct {
	PoolID common.Hash    `json:"pool_id"`
	Owner  common.Address `json:"owner"`
	Units  uint64         `json:"units"`
}
