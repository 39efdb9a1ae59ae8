package amm

import (
	"errors"
	"fmt"

	"ammCore/internal/fixedpoint"
	"ammCore/internal/model"
)

// DepositResult is the outcome of a successful deposit.
type DepositResult struct {
	AmountA         uint64 `json:"amount_a_used"`
	AmountB         uint64 `json:"amount_b_used"`
	LiquidityMinted uint64 `json:"liquidity_minted"`
	LiquidityLocked uint64 `json:"liquidity_locked,omitempty"`
}

// WithdrawResult is the outcome of a successful withdrawal.
type WithdrawResult struct {
	AmountA        uint64 `json:"amount_a_out"`
	AmountB        uint64 `json:"amount_b_out"`
	LiquidityIn    uint64 `json:"liquidity_in"`
	RemainingUnits uint64 `json:"remaining_units"`
}

// Deposit adds liquidity to p. Into an empty pool both amounts are taken as-is
// and set the price; into a funded pool one side is reduced to match the
// current reserve ratio. LiquidityMinted is the amount credited to the caller.
func Deposit(p model.Pool, amountADesired, amountBDesired, minLiquidityOut uint64) (DepositResult, model.Pool, error) {
	if err := writable(p); err != nil {
		return DepositResult{}, p, err
	}
	if amountADesired == 0 || amountBDesired == 0 {
		return DepositResult{}, p, fmt.Errorf("%w: deposit amounts must be positive, got %d/%d", ErrInvalidAmount, amountADesired, amountBDesired)
	}

	var res DepositResult
	var minted uint64
	if PoolState(p) == StateEmpty {
		minted = fixedpoint.SqrtProduct(amountADesired, amountBDesired)
		if minted <= p.MinimumLiquidity {
			return DepositResult{}, p, fmt.Errorf("%w: sqrt(%d*%d)=%d, need more than %d",
				ErrInsufficientInitialLiquidity, amountADesired, amountBDesired, minted, p.MinimumLiquidity)
		}
		res = DepositResult{
			AmountA:         amountADesired,
			AmountB:         amountBDesired,
			LiquidityMinted: minted - p.MinimumLiquidity,
			LiquidityLocked: p.MinimumLiquidity,
		}
	} else {
		usedA, usedB, err := matchRatio(p, amountADesired, amountBDesired)
		if err != nil {
			return DepositResult{}, p, err
		}
		mintedA, err := fixedpoint.MulDiv(usedA, p.LiquiditySupply, p.ReserveA)
		if err != nil {
			return DepositResult{}, p, capacity("liquidity minted", err)
		}
		mintedB, err := fixedpoint.MulDiv(usedB, p.LiquiditySupply, p.ReserveB)
		if err != nil {
			return DepositResult{}, p, capacity("liquidity minted", err)
		}
		minted = fixedpoint.Min(mintedA, mintedB)
		if minted == 0 {
			return DepositResult{}, p, fmt.Errorf("%w: deposit %d/%d too small to mint liquidity", ErrInvalidAmount, usedA, usedB)
		}
		res = DepositResult{AmountA: usedA, AmountB: usedB, LiquidityMinted: minted}
	}

	if res.LiquidityMinted < minLiquidityOut {
		return DepositResult{}, p, &SlippageError{Field: "liquidity_minted", Actual: res.LiquidityMinted, Minimum: minLiquidityOut}
	}

	next := p
	var err error
	if next.ReserveA, err = fixedpoint.Add(p.ReserveA, res.AmountA); err != nil {
		return DepositResult{}, p, capacity("reserve a", err)
	}
	if next.ReserveB, err = fixedpoint.Add(p.ReserveB, res.AmountB); err != nil {
		return DepositResult{}, p, capacity("reserve b", err)
	}
	if next.LiquiditySupply, err = fixedpoint.Add(p.LiquiditySupply, minted); err != nil {
		return DepositResult{}, p, capacity("liquidity supply", err)
	}
	if err := Validate(next); err != nil {
		return DepositResult{}, p, err
	}
	return res, next, nil
}

// matchRatio returns the amounts that keep the reserve ratio of p unchanged
// while using as much of the desired amounts as possible.
func matchRatio(p model.Pool, amountADesired, amountBDesired uint64) (uint64, uint64, error) {
	amountBRequired, err := fixedpoint.MulDiv(amountADesired, p.ReserveB, p.ReserveA)
	switch {
	case err == nil && amountBRequired <= amountBDesired:
		return amountADesired, amountBRequired, nil
	case err != nil && !errors.Is(err, fixedpoint.ErrOverflow):
		return 0, 0, arithmetic("required amount b", err)
	}

	// amountBRequired exceeds amountBDesired (or 64 bits), so amountARequired < amountADesired.
	amountARequired, err := fixedpoint.MulDiv(amountBDesired, p.ReserveA, p.ReserveB)
	if err != nil {
		return 0, 0, arithmetic("required amount a", err)
	}
	return amountARequired, amountBDesired, nil
}

// Withdraw burns liquidityIn units held by a position of positionUnits and
// pays out the proportional share of both reserves, rounded down.
func Withdraw(p model.Pool, positionUnits, liquidityIn, minAmountA, minAmountB uint64) (WithdrawResult, model.Pool, error) {
	if err := writable(p); err != nil {
		return WithdrawResult{}, p, err
	}
	if liquidityIn == 0 {
		return WithdrawResult{}, p, fmt.Errorf("%w: liquidity to withdraw must be positive", ErrInvalidAmount)
	}
	if positionUnits < liquidityIn {
		return WithdrawResult{}, p, &PositionError{Held: positionUnits, Requested: liquidityIn}
	}
	if liquidityIn > p.LiquiditySupply {
		return WithdrawResult{}, p, fmt.Errorf("%w: position %d exceeds pool supply %d",
			ErrInvariantViolation, liquidityIn, p.LiquiditySupply)
	}

	amountA, err := fixedpoint.MulDiv(liquidityIn, p.ReserveA, p.LiquiditySupply)
	if err != nil {
		return WithdrawResult{}, p, arithmetic("amount a out", err)
	}
	amountB, err := fixedpoint.MulDiv(liquidityIn, p.ReserveB, p.LiquiditySupply)
	if err != nil {
		return WithdrawResult{}, p, arithmetic("amount b out", err)
	}
	if amountA < minAmountA {
		return WithdrawResult{}, p, &SlippageError{Field: "amount_a_out", Actual: amountA, Minimum: minAmountA}
	}
	if amountB < minAmountB {
		return WithdrawResult{}, p, &SlippageError{Field: "amount_b_out", Actual: amountB, Minimum: minAmountB}
	}

	next := p
	if next.ReserveA, err = fixedpoint.Sub(p.ReserveA, amountA); err != nil {
		return WithdrawResult{}, p, arithmetic("reserve a", err)
	}
	if next.ReserveB, err = fixedpoint.Sub(p.ReserveB, amountB); err != nil {
		return WithdrawResult{}, p, arithmetic("reserve b", err)
	}
	if next.LiquiditySupply, err = fixedpoint.Sub(p.LiquiditySupply, liquidityIn); err != nil {
		return WithdrawResult{}, p, arithmetic("liquidity supply", err)
	}
	if err := Validate(next); err != nil {
		return WithdrawResult{}, p, err
	}

	return WithdrawResult{
		AmountA:        amountA,
		AmountB:        amountB,
		LiquidityIn:    liquidityIn,
		RemainingUnits: positionUnits - liquidityIn,
	}, next, nil
}

func writable(p model.Pool) error {
	if p.Halted {
		return fmt.Errorf("%w: %s", ErrPoolHalted, p.ID.Hex())
	}
	return Validate(p)
}

// capacity maps a 64-bit overflow from an oversized request to ErrInvalidAmount.
// Such a request is a caller error and does not halt the pool.
func capacity(what string, err error) error {
	if errors.Is(err, fixedpoint.ErrOverflow) && !errors.Is(err, fixedpoint.ErrUnderflow) {
		return fmt.Errorf("%w: %s exceeds 64-bit capacity", ErrInvalidAmount, what)
	}
	return arithmetic(what, err)
}
