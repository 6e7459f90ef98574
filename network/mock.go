package network

import (
	"context"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// MockLedgerService is a test double for LedgerService.
// All function fields must be set before the corresponding method is called.
type MockLedgerService struct {
	GlobalStateFn func(ctx context.Context) (*GlobalState, error)
	SeqIDFn       func(ctx context.Context) (uint64, error)
	OwnedUtxosFn  func(ctx context.Context, pk ledger.PublicKey) ([]ledger.OwnedUtxo, error)
}

var _ LedgerService = (*MockLedgerService)(nil)

func (m *MockLedgerService) GlobalState(ctx context.Context) (*GlobalState, error) {
	return m.GlobalStateFn(ctx)
}
func (m *MockLedgerService) SeqID(ctx context.Context) (uint64, error) {
	return m.SeqIDFn(ctx)
}
func (m *MockLedgerService) OwnedUtxos(ctx context.Context, pk ledger.PublicKey) ([]ledger.OwnedUtxo, error) {
	return m.OwnedUtxosFn(ctx, pk)
}
