package fixedpoint

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"pgregory.net/rapid"
)

func TestAddOverflow(t *testing.T) {
	if got, err := Add(1, 2); err != nil || got != 3 {
		t.Fatalf("add: got %d, %v", got, err)
	}
	if _, err := Add(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSubUnderflow(t *testing.T) {
	if got, err := Sub(5, 5); err != nil || got != 0 {
		t.Fatalf("sub: got %d, %v", got, err)
	}
	_, err := Sub(4, 5)
	if !errors.Is(err, ErrUnderflow) || !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected underflow wrapping overflow, got %v", err)
	}
}

func TestMul(t *testing.T) {
	if got, err := Mul(1<<32, 1<<31); err != nil || got != 1<<63 {
		t.Fatalf("mul: got %d, %v", got, err)
	}
	if _, err := Mul(1<<32, 1<<32); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(10, 0); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if _, err := MulDiv(10, 10, 0); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestMulDivWideIntermediate(t *testing.T) {
	// a*b exceeds 64 bits but the quotient fits.
	got, err := MulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	if err != nil {
		t.Fatalf("muldiv: %v", err)
	}
	if got != math.MaxUint64 {
		t.Fatalf("muldiv: got %d", got)
	}

	if _, err := MulDiv(math.MaxUint64, 2, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSqrtProduct(t *testing.T) {
	cases := []struct {
		a, b, want uint64
	}{
		{400, 900, 600},
		{0, 900, 0},
		{1, 1, 1},
		{2, 1, 1},
		{3, 3, 3},
		{10, 11, 10},
		{math.MaxUint64, math.MaxUint64, math.MaxUint64},
	}
	for _, tc := range cases {
		if got := SqrtProduct(tc.a, tc.b); got != tc.want {
			t.Fatalf("sqrt(%d*%d): got %d want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestApplyFeeBps(t *testing.T) {
	got, err := ApplyFeeBps(100, 30)
	if err != nil {
		t.Fatalf("apply fee: %v", err)
	}
	if got != 99 {
		t.Fatalf("apply fee: got %d want 99", got)
	}
	if got, _ := ApplyFeeBps(100, 0); got != 100 {
		t.Fatalf("zero fee: got %d", got)
	}
	if _, err := ApplyFeeBps(100, BpsDenominator+1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected error for fee above denominator, got %v", err)
	}
}

func TestMulDivMatchesBigInt(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64().Draw(t, "a")
		b := rapid.Uint64().Draw(t, "b")
		c := rapid.Uint64Min(1).Draw(t, "c")

		want := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
		want.Quo(want, new(big.Int).SetUint64(c))

		got, err := MulDiv(a, b, c)
		if !want.IsUint64() {
			if !errors.Is(err, ErrOverflow) {
				t.Fatalf("expected overflow for %d*%d/%d, got %d, %v", a, b, c, got, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("muldiv %d*%d/%d: %v", a, b, c, err)
		}
		if got != want.Uint64() {
			t.Fatalf("muldiv %d*%d/%d: got %d want %s", a, b, c, got, want)
		}
	})
}

func TestSqrtProductIsFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64().Draw(t, "a")
		b := rapid.Uint64().Draw(t, "b")

		root := SqrtProduct(a, b)
		prod := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
		r := new(big.Int).SetUint64(root)
		if new(big.Int).Mul(r, r).Cmp(prod) > 0 {
			t.Fatalf("root %d squared exceeds %s", root, prod)
		}
		r1 := new(big.Int).Add(r, big.NewInt(1))
		if new(big.Int).Mul(r1, r1).Cmp(prod) <= 0 {
			t.Fatalf("root %d is not the floor of sqrt(%s)", root, prod)
		}
	})
}
