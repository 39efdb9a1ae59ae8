package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/fixedpoint"
	"ammCore/internal/model"
)

// Quote is the priced outcome of an exact-input swap.
type Quote struct {
	InputToken       common.Address `json:"input_token"`
	OutputToken      common.Address `json:"output_token"`
	AmountIn         uint64         `json:"amount_in"`
	AmountInAfterFee uint64         `json:"amount_in_after_fee"`
	Fee              uint64         `json:"fee"`
	AmountOut        uint64         `json:"amount_out"`
}

// QuoteExactIn prices a swap of amountIn of inputToken without changing p.
func QuoteExactIn(p model.Pool, inputToken common.Address, amountIn uint64) (Quote, error) {
	if amountIn == 0 {
		return Quote{}, fmt.Errorf("%w: amount in must be positive", ErrInvalidAmount)
	}
	reserveIn, reserveOut, aIsInput, err := orient(p, inputToken)
	if err != nil {
		return Quote{}, err
	}
	if reserveIn == 0 || PoolState(p) != StateFunded {
		return Quote{}, fmt.Errorf("%w: pool %s is not funded", ErrInsufficientLiquidity, p.ID.Hex())
	}

	afterFee, err := fixedpoint.ApplyFeeBps(amountIn, p.FeeRateBps)
	if err != nil {
		return Quote{}, arithmetic("amount in after fee", err)
	}
	denominator, err := fixedpoint.Add(reserveIn, afterFee)
	if err != nil {
		return Quote{}, capacity("reserve in", err)
	}
	amountOut, err := fixedpoint.MulDiv(reserveOut, afterFee, denominator)
	if err != nil {
		return Quote{}, arithmetic("amount out", err)
	}
	if err := checkDrain(amountOut, reserveOut); err != nil {
		return Quote{}, err
	}
	if amountOut == 0 {
		return Quote{}, fmt.Errorf("%w: input %d too small to buy one unit", ErrInvalidAmount, amountIn)
	}

	outputToken := p.TokenA
	if aIsInput {
		outputToken = p.TokenB
	}
	return Quote{
		InputToken:       inputToken,
		OutputToken:      outputToken,
		AmountIn:         amountIn,
		AmountInAfterFee: afterFee,
		Fee:              amountIn - afterFee,
		AmountOut:        amountOut,
	}, nil
}

// SwapExactIn executes a swap of amountIn of inputToken against p. The whole
// input, fee included, is added to the input reserve. An input too small to
// buy one unit of output fails with ErrInvalidAmount even when minAmountOut
// is zero, so a caller never pays into the pool for nothing.
func SwapExactIn(p model.Pool, inputToken common.Address, amountIn, minAmountOut uint64) (Quote, model.Pool, error) {
	if err := writable(p); err != nil {
		return Quote{}, p, err
	}
	q, err := QuoteExactIn(p, inputToken, amountIn)
	if err != nil {
		return Quote{}, p, err
	}
	if q.AmountOut < minAmountOut {
		return Quote{}, p, &SlippageError{Field: "amount_out", Actual: q.AmountOut, Minimum: minAmountOut}
	}

	reserveIn, reserveOut, aIsInput, _ := orient(p, inputToken)
	newIn, err := fixedpoint.Add(reserveIn, amountIn)
	if err != nil {
		return Quote{}, p, capacity("reserve in", err)
	}
	newOut, err := fixedpoint.Sub(reserveOut, q.AmountOut)
	if err != nil {
		return Quote{}, p, arithmetic("reserve out", err)
	}

	before := fixedpoint.Product(reserveIn, reserveOut)
	after := fixedpoint.Product(newIn, newOut)
	if after.Lt(before) || (p.FeeRateBps > 0 && !after.Gt(before)) {
		return Quote{}, p, fmt.Errorf("%w: product %v -> %v on pool %s", ErrInvariantViolation, before, after, p.ID.Hex())
	}

	next := p
	if aIsInput {
		next.ReserveA, next.ReserveB = newIn, newOut
	} else {
		next.ReserveB, next.ReserveA = newIn, newOut
	}
	return q, next, nil
}

// checkDrain rejects an output that would empty the output reserve. The
// output is never capped to fit.
func checkDrain(amountOut, reserveOut uint64) error {
	if amountOut >= reserveOut {
		return fmt.Errorf("%w: output %d would drain reserve %d", ErrInsufficientLiquidity, amountOut, reserveOut)
	}
	return nil
}
