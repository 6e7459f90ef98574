package tx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// SeqSource reports the ledger's current sequence id.
type SeqSource interface {
	SeqID(ctx context.Context) (uint64, error)
}

// TransactionBuilder collects operations for a transaction pinned to a
// sequence id. ledger.TransactionBuilder is the production implementation.
type TransactionBuilder interface {
	SeqID() uint64
	AddOperation(op ledger.Operation)
	SignToMap(s ledger.Signer) error
	Transaction() *ledger.Transaction
}

// TransactionBuilderFactory opens a builder for a sequence id.
type TransactionBuilderFactory func(seqID uint64) (TransactionBuilder, error)

// NewTransactionBuilder opens a ledger transaction builder with a random
// no-replay token.
func NewTransactionBuilder(seqID uint64) (TransactionBuilder, error) {
	b, err := ledger.NewTransactionBuilder(seqID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Sequence fetches the current sequence id and opens a builder scoped to it.
func Sequence(ctx context.Context, src SeqSource, newBuilder TransactionBuilderFactory) (TransactionBuilder, error) {
	seqID, err := src.SeqID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: sequence id: %w", ErrRemoteFetch, err)
	}
	return openBuilder(seqID, newBuilder)
}

func openBuilder(seqID uint64, newBuilder TransactionBuilderFactory) (TransactionBuilder, error) {
	if newBuilder == nil {
		newBuilder = NewTransactionBuilder
	}
	b, err := newBuilder(seqID)
	if err != nil {
		return nil, fmt.Errorf("%w: open transaction: %w", ErrLedgerBuilder, err)
	}
	return b, nil
}

// Finalize adds op to b, signs the whole transaction with sender and returns
// the transaction. This signature is separate from the one inside op.
func Finalize(b TransactionBuilder, op ledger.Operation, sender ledger.Signer) (*ledger.Transaction, error) {
	b.AddOperation(op)
	if err := b.SignToMap(sender); err != nil {
		return nil, fmt.Errorf("%w: sign transaction: %w", ErrLedgerBuilder, err)
	}
	return b.Transaction(), nil
}

// Serialize encodes txn as the JSON string handed back to callers.
func Serialize(txn *ledger.Transaction) (string, error) {
	if txn == nil {
		return "", fmt.Errorf("%w: nil transaction", ErrSerialization)
	}
	b, err := json.Marshal(txn)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return string(b), nil
}
