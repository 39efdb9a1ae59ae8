// Package fixedpoint provides checked unsigned integer arithmetic for pool math.
//
// Operands and results are uint64 smallest-unit amounts. Products are formed in a
// 256-bit intermediate so multiply-then-divide never truncates before the division.
// Every division rounds toward zero.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// BpsDenominator is the number of basis points in one whole.
const BpsDenominator = 10_000

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = fmt.Errorf("%w: subtraction underflow", ErrOverflow)
	ErrDivisionByZero = errors.New("division by zero")
)

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("add %d + %d: %w", a, b, ErrOverflow)
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("sub %d - %d: %w", a, b, ErrUnderflow)
	}
	return a - b, nil
}

// Mul returns a*b or ErrOverflow when the product does not fit in 64 bits.
func Mul(a, b uint64) (uint64, error) {
	p := Product(a, b)
	if !p.IsUint64() {
		return 0, fmt.Errorf("mul %d * %d: %w", a, b, ErrOverflow)
	}
	return p.Uint64(), nil
}

// Div returns floor(a/b).
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, fmt.Errorf("div %d / 0: %w", a, ErrDivisionByZero)
	}
	return a / b, nil
}

// MulDiv returns floor(a*b/c) using a 128-bit exact product.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, fmt.Errorf("muldiv %d * %d / 0: %w", a, b, ErrDivisionByZero)
	}
	q := new(uint256.Int).Div(Product(a, b), uint256.NewInt(c))
	if !q.IsUint64() {
		return 0, fmt.Errorf("muldiv %d * %d / %d: %w", a, b, c, ErrOverflow)
	}
	return q.Uint64(), nil
}

// Product returns the exact product a*b. It cannot overflow 256 bits.
func Product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// SqrtProduct returns floor(sqrt(a*b)).
func SqrtProduct(a, b uint64) uint64 {
	// sqrt of a value below 2^128 always fits in 64 bits.
	return new(uint256.Int).Sqrt(Product(a, b)).Uint64()
}

// ApplyFeeBps returns floor(amount * (10000 - feeBps) / 10000).
func ApplyFeeBps(amount uint64, feeBps uint32) (uint64, error) {
	if feeBps > BpsDenominator {
		return 0, fmt.Errorf("fee %d bps exceeds %d: %w", feeBps, BpsDenominator, ErrOverflow)
	}
	return MulDiv(amount, uint64(BpsDenominator-feeBps), BpsDenominator)
}

// Min returns the smaller of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
