package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid token amount")

// ParseAmount converts a decimal string such as "12.5" into base units for a
// token with the given decimals. Fractional digits beyond the token's
// precision are rejected rather than rounded.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" || hasDot && frac == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, s, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q exceeds 64-bit range", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatAmount renders base units as a decimal string without trailing zeros.
func FormatAmount(units uint64, decimals uint8) string {
	digits := strconv.FormatUint(units, 10)
	if decimals == 0 {
		return digits
	}
	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	whole, frac := digits[:len(digits)-d], strings.TrimRight(digits[len(digits)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
