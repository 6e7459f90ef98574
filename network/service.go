package network

import (
	"context"
	"encoding/json"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// LedgerService is the read-only view of the ledger query server used to
// build transfers.
type LedgerService interface {
	// GlobalState returns the ledger's current global state.
	GlobalState(ctx context.Context) (*GlobalState, error)

	// SeqID returns the ledger's current sequence id.
	SeqID(ctx context.Context) (uint64, error)

	// OwnedUtxos returns the unspent outputs owned by pk, in ledger order.
	OwnedUtxos(ctx context.Context, pk ledger.PublicKey) ([]ledger.OwnedUtxo, error)
}

// GlobalState is the (state hash, sequence id, extra) triple served at
// /global_state. Only SeqID is interpreted.
type GlobalState struct {
	StateHash json.RawMessage
	SeqID     uint64
	Extra     json.RawMessage
}
