package boundary

import (
	"context"
	"errors"

	"github.com/bitfsorg/libxfr-go/tx"
)

// Code is the integer error signal returned across the library boundary.
type Code int

// Error codes. They are stable; callers switch on the numeric values.
const (
	CodeOK                Code = 0
	CodeInvalidArgument   Code = 1
	CodeKeyDecode         Code = 2
	CodeRemoteFetch       Code = 3
	CodeInsufficientFunds Code = 4
	CodeLedgerBuilder     Code = 5
	CodeSerialization     Code = 6
	CodeCanceled          Code = 7
	CodeInternal          Code = 99
)

var codeNames = map[Code]string{
	CodeOK:                "ok",
	CodeInvalidArgument:   "invalid argument",
	CodeKeyDecode:         "key decode error",
	CodeRemoteFetch:       "remote fetch error",
	CodeInsufficientFunds: "insufficient funds",
	CodeLedgerBuilder:     "ledger builder error",
	CodeSerialization:     "serialization error",
	CodeCanceled:          "canceled",
	CodeInternal:          "internal error",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "unknown"
}

// CodeOf classifies err. Cancellation wins over the kind it was wrapped in.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.Is(err, tx.ErrInvalidParams):
		return CodeInvalidArgument
	case errors.Is(err, tx.ErrKeyDecode):
		return CodeKeyDecode
	case errors.Is(err, tx.ErrRemoteFetch):
		return CodeRemoteFetch
	case errors.Is(err, tx.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, tx.ErrLedgerBuilder):
		return CodeLedgerBuilder
	case errors.Is(err, tx.ErrSerialization):
		return CodeSerialization
	default:
		return CodeInternal
	}
}
