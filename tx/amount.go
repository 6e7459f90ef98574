package tx

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// MaxDecimals bounds the decimals accepted by ParseAmount.
const MaxDecimals = 18

// ParseAmount converts a decimal string such as "12.5" into base units of an
// asset with the given number of decimals. Fractional digits beyond decimals
// and values above the uint64 range are rejected.
func ParseAmount(s string, decimals int) (uint64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: decimals %d out of range", ErrInvalidParams, decimals)
	}
	s = strings.TrimSpace(s)
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidParams)
	}
	if hasDot && frac == "" {
		return 0, fmt.Errorf("%w: amount %q ends with a decimal point", ErrInvalidParams, s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("%w: amount %q is not a decimal number", ErrInvalidParams, s)
	}
	if len(frac) > decimals {
		return 0, fmt.Errorf("%w: amount %q has more than %d decimals", ErrInvalidParams, s, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0, nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %w", ErrInvalidParams, s, err)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: amount %q overflows", ErrInvalidParams, s)
	}
	return v.Uint64(), nil
}

// FormatAmount renders base units with the given number of decimals,
// trimming trailing zeros of the fraction.
func FormatAmount(v uint64, decimals int) string {
	if decimals <= 0 {
		return fmt.Sprint(v)
	}
	s := fmt.Sprintf("%0*d", decimals+1, v)
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
