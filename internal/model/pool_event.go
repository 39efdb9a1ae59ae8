package model

// Event kinds written to the journal.
const (
	EventCreate   = "create"
	EventDeposit  = "deposit"
	EventWithdraw = "withdraw"
	EventSwap     = "swap"
	EventHalt     = "halt"
	EventResume   = "resume"
)

// PoolEvent records one committed pool operation with its post-operation state.
type PoolEvent struct {
	Kind            string `json:"kind"`
	PoolID          string `json:"pool_id"`
	Caller          string `json:"caller,omitempty"`
	InputToken      string `json:"input_token,omitempty"`
	AmountA         uint64 `json:"amount_a,omitempty"`
	AmountB         uint64 `json:"amount_b,omitempty"`
	AmountIn        uint64 `json:"amount_in,omitempty"`
	AmountOut       uint64 `json:"amount_out,omitempty"`
	Liquidity       uint64 `json:"liquidity,omitempty"`
	ReserveA        uint64 `json:"reserve_a"`
	ReserveB        uint64 `json:"reserve_b"`
	LiquiditySupply uint64 `json:"liquidity_supply"`
	Reason          string `json:"reason,omitempty"`
	Timestamp       uint64 `json:"timestamp"`
	RecordedAt      string `json:"recorded_at"`
}
