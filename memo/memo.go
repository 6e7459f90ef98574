// Package memo encodes the BRC-20 style transfer memo attached to the payment
// output of a transfer. Indexers match on the exact field order and key
// names, so the wire form must not change.
package memo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// Protocol is the fixed protocol tag.
	Protocol = "brc-20"

	// OpTransfer is the fixed operation tag.
	OpTransfer = "transfer"

	// MaxTickerLen bounds ticker length in bytes.
	MaxTickerLen = 32
)

var (
	// ErrInvalidTicker indicates the ticker is empty, too long or not printable ASCII.
	ErrInvalidTicker = errors.New("memo: invalid ticker")

	// ErrInvalidAmount indicates the amount is not a non-negative decimal integer.
	ErrInvalidAmount = errors.New("memo: invalid amount")

	// ErrInvalidMemo indicates a memo string could not be decoded.
	ErrInvalidMemo = errors.New("memo: invalid memo")
)

// Memo is a token transfer descriptor. Field order is part of the wire format.
type Memo struct {
	P    string `json:"p"`
	Op   string `json:"op"`
	Tick string `json:"tick"`
	Amt  string `json:"amt"`
}

// New returns a transfer memo for ticker and amount.
func New(ticker, amount string) Memo {
	return Memo{P: Protocol, Op: OpTransfer, Tick: ticker, Amt: amount}
}

// Validate checks the ticker and amount fields.
func (m Memo) Validate() error {
	if err := ValidateTicker(m.Tick); err != nil {
		return err
	}
	return ValidateAmount(m.Amt)
}

// String returns the compact JSON encoding.
func (m Memo) String() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of strings cannot fail.
	_ = enc.Encode(m)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Encode validates ticker and amount and returns the compact memo string.
func Encode(ticker, amount string) (string, error) {
	m := New(ticker, amount)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m.String(), nil
}

// Decode parses a memo string and checks its fixed tags.
func Decode(s string) (Memo, error) {
	var m Memo
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Memo{}, fmt.Errorf("%w: %w", ErrInvalidMemo, err)
	}
	if m.P != Protocol {
		return Memo{}, fmt.Errorf("%w: protocol %q", ErrInvalidMemo, m.P)
	}
	if m.Op != OpTransfer {
		return Memo{}, fmt.Errorf("%w: operation %q", ErrInvalidMemo, m.Op)
	}
	if err := m.Validate(); err != nil {
		return Memo{}, err
	}
	return m, nil
}

// ValidateTicker accepts 1..MaxTickerLen bytes of printable ASCII other than
// the quote and backslash characters.
func ValidateTicker(tick string) error {
	if len(tick) == 0 || len(tick) > MaxTickerLen {
		return fmt.Errorf("%w: length %d", ErrInvalidTicker, len(tick))
	}
	for i := 0; i < len(tick); i++ {
		c := tick[i]
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			return fmt.Errorf("%w: byte 0x%02x at %d", ErrInvalidTicker, c, i)
		}
	}
	return nil
}

// ValidateAmount accepts a decimal integer that fits in 256 bits.
func ValidateAmount(amt string) error {
	if amt == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	for i := 0; i < len(amt); i++ {
		if amt[i] < '0' || amt[i] > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidAmount, amt)
		}
	}
	if _, err := uint256.FromDecimal(amt); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidAmount, amt, err)
	}
	return nil
}
