package model

import (
	"encoding/json"
	"testing"
)

func TestPoolEventOmitsUnusedAmounts(t *testing.T) {
	ev := PoolEvent{
		Kind:            EventSwap,
		PoolID:          "0xabc",
		Caller:          "0x1111111111111111111111111111111111111111",
		InputToken:      "0x2222222222222222222222222222222222222222",
		AmountIn:        100,
		AmountOut:       90,
		ReserveA:        1100,
		ReserveB:        910,
		LiquiditySupply: 1000,
		Timestamp:       1700000000,
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["amount_a"]; ok {
		t.Fatalf("amount_a should be omitted for swaps")
	}
	if _, ok := decoded["reserve_a"]; !ok {
		t.Fatalf("reserve_a should always be present")
	}
	if decoded["amount_out"].(float64) != 90 {
		t.Fatalf("amount_out mismatch: %v", decoded["amount_out"])
	}
}
