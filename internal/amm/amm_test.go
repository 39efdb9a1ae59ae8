package amm

import (
	"errors"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/model"
)

var (
	tokenX = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenY = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func newTestPool(t *testing.T, feeBps uint32) model.Pool {
	t.Helper()
	p, err := NewPool(tokenX, tokenY, Params{FeeRateBps: feeBps}, 0)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return p
}

func fundedPool(t *testing.T, reserveA, reserveB uint64, feeBps uint32) model.Pool {
	t.Helper()
	p := newTestPool(t, feeBps)
	_, p, err := Deposit(p, reserveA, reserveB, 0)
	if err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	return p
}

func TestCanonicalPairOrder(t *testing.T) {
	a1, b1, err := CanonicalPair(tokenY, tokenX)
	if err != nil {
		t.Fatalf("canonical pair: %v", err)
	}
	a2, b2, _ := CanonicalPair(tokenX, tokenY)
	if a1 != a2 || b1 != b2 || a1 != tokenX {
		t.Fatalf("pair not canonical: (%s,%s) vs (%s,%s)", a1.Hex(), b1.Hex(), a2.Hex(), b2.Hex())
	}

	id1, _ := PoolID(tokenX, tokenY)
	id2, _ := PoolID(tokenY, tokenX)
	if id1 != id2 {
		t.Fatalf("pool id depends on order")
	}
}

func TestCanonicalPairRejectsInvalid(t *testing.T) {
	if _, _, err := CanonicalPair(tokenX, tokenX); !errors.Is(err, ErrInvalidPair) {
		t.Fatalf("expected ErrInvalidPair for identical tokens, got %v", err)
	}
	if _, _, err := CanonicalPair(common.Address{}, tokenX); !errors.Is(err, ErrInvalidPair) {
		t.Fatalf("expected ErrInvalidPair for zero address, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := (Params{FeeRateBps: 9999}).Validate(); err != nil {
		t.Fatalf("9999 bps should be valid: %v", err)
	}
	if err := (Params{FeeRateBps: 10000}).Validate(); !errors.Is(err, ErrInvalidFeeRate) {
		t.Fatalf("expected ErrInvalidFeeRate, got %v", err)
	}
}

func TestDepositIntoEmptyPool(t *testing.T) {
	p := newTestPool(t, 30)

	res, next, err := Deposit(p, 400, 900, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.LiquidityMinted != 600 || res.AmountA != 400 || res.AmountB != 900 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if next.ReserveA != 400 || next.ReserveB != 900 || next.LiquiditySupply != 600 {
		t.Fatalf("unexpected pool: %+v", next)
	}
	if p.LiquiditySupply != 0 {
		t.Fatalf("input snapshot mutated")
	}
}

func TestDepositInitialTooSmall(t *testing.T) {
	p := newTestPool(t, 30)
	if _, _, err := Deposit(p, 0, 900, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	p.MinimumLiquidity = 1000
	_, _, err := Deposit(p, 400, 900, 0)
	if !errors.Is(err, ErrInsufficientInitialLiquidity) {
		t.Fatalf("expected ErrInsufficientInitialLiquidity, got %v", err)
	}
}

func TestDepositLocksMinimumLiquidity(t *testing.T) {
	p := newTestPool(t, 30)
	p.MinimumLiquidity = 100

	res, next, err := Deposit(p, 400, 900, 500)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.LiquidityMinted != 500 || res.LiquidityLocked != 100 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if next.LiquiditySupply != 600 {
		t.Fatalf("supply should include locked units: %d", next.LiquiditySupply)
	}
}

func TestDepositFundedAdjustsOneSide(t *testing.T) {
	p := fundedPool(t, 1000, 2000, 30)

	// B side is in excess: only 200 of 500 B is needed for 100 A.
	res, next, err := Deposit(p, 100, 500, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.AmountA != 100 || res.AmountB != 200 {
		t.Fatalf("unexpected amounts: %+v", res)
	}
	// supply = sqrt(2_000_000) = 1414; minted = min(100*1414/1000, 200*1414/2000) = 141
	if res.LiquidityMinted != 141 {
		t.Fatalf("unexpected minted: %d", res.LiquidityMinted)
	}
	if next.ReserveA != 1100 || next.ReserveB != 2200 || next.LiquiditySupply != 1414+141 {
		t.Fatalf("unexpected pool: %+v", next)
	}

	// A side is in excess.
	res, _, err = Deposit(p, 500, 200, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.AmountA != 100 || res.AmountB != 200 {
		t.Fatalf("unexpected amounts: %+v", res)
	}
}

func TestDepositHugeAmountAUsesBSide(t *testing.T) {
	p := fundedPool(t, 1000, 2000, 30)

	// amountA * reserveB overflows 64 bits after division, so B bounds the deposit.
	res, _, err := Deposit(p, math.MaxUint64, 500, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.AmountA != 250 || res.AmountB != 500 {
		t.Fatalf("unexpected amounts: %+v", res)
	}
}

func TestDepositSlippage(t *testing.T) {
	p := newTestPool(t, 30)
	_, _, err := Deposit(p, 400, 900, 601)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	var slip *SlippageError
	if !errors.As(err, &slip) || slip.Actual != 600 || slip.Minimum != 601 {
		t.Fatalf("slippage detail missing: %v", err)
	}
}

func TestDepositTooSmallForFundedPool(t *testing.T) {
	p := fundedPool(t, 1_000_000, 1_000_000, 30)
	p.LiquiditySupply = 10 // few claim units over large reserves
	if _, _, err := Deposit(p, 1, 1, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestWithdrawAll(t *testing.T) {
	p := fundedPool(t, 400, 900, 30)

	res, next, err := Withdraw(p, 600, 600, 400, 900)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.AmountA != 400 || res.AmountB != 900 || res.RemainingUnits != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if next.ReserveA != 0 || next.ReserveB != 0 || next.LiquiditySupply != 0 {
		t.Fatalf("pool not empty: %+v", next)
	}
	if PoolState(next) != StateEmpty {
		t.Fatalf("expected empty state")
	}

	// An emptied pool can be funded again at a new price.
	res2, refunded, err := Deposit(next, 10, 1000, 0)
	if err != nil {
		t.Fatalf("refund deposit: %v", err)
	}
	if res2.LiquidityMinted != 100 || refunded.ReserveB != 1000 {
		t.Fatalf("unexpected refund: %+v %+v", res2, refunded)
	}
}

func TestWithdrawErrors(t *testing.T) {
	p := fundedPool(t, 400, 900, 30)

	if _, _, err := Withdraw(p, 600, 0, 0, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, _, err := Withdraw(p, 100, 101, 0, 0)
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Fatalf("expected ErrInsufficientPosition, got %v", err)
	}
	var pos *PositionError
	if !errors.As(err, &pos) || pos.Held != 100 || pos.Requested != 101 {
		t.Fatalf("position detail missing: %v", err)
	}

	// 300 units -> 200 A, 450 B
	if _, _, err := Withdraw(p, 600, 300, 201, 0); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded on A, got %v", err)
	}
	if _, _, err := Withdraw(p, 600, 300, 0, 451); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded on B, got %v", err)
	}
}

func TestWithdrawMoreThanSupplyIsFatal(t *testing.T) {
	p := fundedPool(t, 400, 900, 30)
	_, _, err := Withdraw(p, 1000, 700, 0, 0)
	if !errors.Is(err, ErrInvariantViolation) || !IsFatal(err) {
		t.Fatalf("expected fatal invariant violation, got %v", err)
	}
}

func TestSwapConcreteScenario(t *testing.T) {
	p := fundedPool(t, 1000, 1000, 30)

	q, next, err := SwapExactIn(p, tokenX, 100, 90)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if q.AmountInAfterFee != 99 || q.AmountOut != 90 || q.Fee != 1 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if q.OutputToken != tokenY {
		t.Fatalf("unexpected output token %s", q.OutputToken.Hex())
	}
	if next.ReserveA != 1100 || next.ReserveB != 910 {
		t.Fatalf("unexpected reserves: %d/%d", next.ReserveA, next.ReserveB)
	}
	if next.LiquiditySupply != p.LiquiditySupply {
		t.Fatalf("swap changed supply")
	}
}

func TestSwapReverseDirection(t *testing.T) {
	p := fundedPool(t, 1000, 1000, 30)
	_, next, err := SwapExactIn(p, tokenY, 100, 0)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if next.ReserveB != 1100 || next.ReserveA != 910 {
		t.Fatalf("unexpected reserves: %d/%d", next.ReserveA, next.ReserveB)
	}
}

func TestSwapErrors(t *testing.T) {
	p := fundedPool(t, 1000, 1000, 30)

	if _, _, err := SwapExactIn(p, tokenX, 0, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	other := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	if _, _, err := SwapExactIn(p, other, 10, 0); !errors.Is(err, ErrInvalidPair) {
		t.Fatalf("expected ErrInvalidPair, got %v", err)
	}
	if _, _, err := SwapExactIn(p, tokenX, 100, 91); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	if _, _, err := SwapExactIn(p, tokenX, 1, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for dust input, got %v", err)
	}

	empty := newTestPool(t, 30)
	if _, _, err := SwapExactIn(empty, tokenX, 100, 0); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity on empty pool, got %v", err)
	}
}

func TestSwapDrainBoundary(t *testing.T) {
	if err := checkDrain(1000, 1000); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if err := checkDrain(1001, 1000); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if err := checkDrain(999, 1000); err != nil {
		t.Fatalf("999 of 1000 should pass: %v", err)
	}

	// A huge input approaches but never reaches the whole output reserve.
	p := fundedPool(t, 1000, 1000, 0)
	q, next, err := SwapExactIn(p, tokenX, 1_000_000_000_000_000, 0)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if q.AmountOut != 999 || next.ReserveB != 1 {
		t.Fatalf("unexpected output %d, reserve %d", q.AmountOut, next.ReserveB)
	}
}

func TestSwapRejectsReserveOverflow(t *testing.T) {
	p := fundedPool(t, 1000, 1000, 30)
	_, _, err := SwapExactIn(p, tokenX, math.MaxUint64, 0)
	if !errors.Is(err, ErrInvalidAmount) || IsFatal(err) {
		t.Fatalf("expected non-fatal ErrInvalidAmount, got %v", err)
	}
}

func TestHaltedPoolRejectsWrites(t *testing.T) {
	p := fundedPool(t, 1000, 1000, 30)
	p.Halted = true

	if _, _, err := SwapExactIn(p, tokenX, 100, 0); !errors.Is(err, ErrPoolHalted) {
		t.Fatalf("expected ErrPoolHalted, got %v", err)
	}
	if _, _, err := Deposit(p, 100, 100, 0); !errors.Is(err, ErrPoolHalted) {
		t.Fatalf("expected ErrPoolHalted, got %v", err)
	}
	if _, _, err := Withdraw(p, 10, 10, 0, 0); !errors.Is(err, ErrPoolHalted) {
		t.Fatalf("expected ErrPoolHalted, got %v", err)
	}
	if _, err := QuoteExactIn(p, tokenX, 100); err != nil {
		t.Fatalf("quotes stay available on halted pools: %v", err)
	}
}

func TestValidateDetectsPartialEmptiness(t *testing.T) {
	p := fundedPool(t, 1000, 1000, 30)
	p.ReserveB = 0
	if err := Validate(p); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	if _, _, err := SwapExactIn(p, tokenX, 100, 0); !IsFatal(err) {
		t.Fatalf("expected fatal error on corrupted pool, got %v", err)
	}
}
