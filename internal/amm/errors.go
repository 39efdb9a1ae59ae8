package amm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPair                  = errors.New("invalid token pair")
	ErrPoolNotFound                 = errors.New("pool not found")
	ErrInvalidAmount                = errors.New("invalid amount")
	ErrInvalidFeeRate               = errors.New("invalid fee rate")
	ErrInsufficientInitialLiquidity = errors.New("insufficient initial liquidity")
	ErrInsufficientPosition         = errors.New("insufficient liquidity position")
	ErrInsufficientLiquidity        = errors.New("insufficient pool liquidity")
	ErrSlippageExceeded             = errors.New("slippage exceeded")
	ErrArithmetic                   = errors.New("arithmetic error")
	ErrInvariantViolation           = errors.New("invariant violation")
	ErrPoolHalted                   = errors.New("pool halted")
)

// SlippageError reports a computed amount that fell below the caller's minimum.
type SlippageError struct {
	Field   string
	Actual  uint64
	Minimum uint64
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("%s: %s %d below minimum %d", ErrSlippageExceeded, e.Field, e.Actual, e.Minimum)
}

func (e *SlippageError) Is(target error) bool {
	return target == ErrSlippageExceeded
}

// PositionError reports a withdrawal larger than the caller's position.
type PositionError struct {
	Held      uint64
	Requested uint64
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("%s: holds %d, requested %d", ErrInsufficientPosition, e.Held, e.Requested)
}

func (e *PositionError) Is(target error) bool {
	return target == ErrInsufficientPosition
}

// IsFatal reports whether err means the pool must stop accepting writes until audited.
func IsFatal(err error) bool {
	return errors.Is(err, ErrArithmetic) || errors.Is(err, ErrInvariantViolation)
}

func arithmetic(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArithmetic, op, err)
}
