package tx

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("tx: invalid parameters")

	// ErrKeyDecode indicates sender key material or a recipient key could not be decoded.
	ErrKeyDecode = errors.New("tx: key decode failed")

	// ErrRemoteFetch indicates a ledger read failed in transport, status or decoding.
	ErrRemoteFetch = errors.New("tx: remote fetch failed")

	// ErrInsufficientFunds indicates the collected outputs cannot cover the fee and payment.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrLedgerBuilder indicates a failure while opening records, adding inputs or
	// outputs, finalizing or signing.
	ErrLedgerBuilder = errors.New("tx: ledger builder failed")

	// ErrSerialization indicates the final transaction could not be serialized.
	ErrSerialization = errors.New("tx: serialization failed")
)

// InsufficientFundsError reports how far the collected amount fell short.
// It matches ErrInsufficientFunds with errors.Is.
type InsufficientFundsError struct {
	Need      uint64
	Have      uint64
	Shortfall uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("tx: insufficient funds: need %d, have %d, short by %d", e.Need, e.Have, e.Shortfall)
}

// Is reports whether target is ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

func insufficient(need, have uint64) *InsufficientFundsError {
	return &InsufficientFundsError{Need: need, Have: have, Shortfall: need - have}
}
