package tx

import (
	"fmt"
	"math/bits"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// RecordOpener opens a ledger record into its plaintext amount and asset type.
type RecordOpener interface {
	Open(rec ledger.BlindAssetRecord, memo *ledger.OwnerMemo, owner ledger.PublicKey) (ledger.OpenAssetRecord, error)
}

// OpenerFunc adapts a function to RecordOpener.
type OpenerFunc func(rec ledger.BlindAssetRecord, memo *ledger.OwnerMemo, owner ledger.PublicKey) (ledger.OpenAssetRecord, error)

// Open calls f.
func (f OpenerFunc) Open(rec ledger.BlindAssetRecord, memo *ledger.OwnerMemo, owner ledger.PublicKey) (ledger.OpenAssetRecord, error) {
	return f(rec, memo, owner)
}

// PublicRecordOpener opens non-confidential records and rejects the rest.
var PublicRecordOpener RecordOpener = OpenerFunc(ledger.OpenRecord)

// SelectedInput is one output chosen to be spent.
type SelectedInput struct {
	SID    ledger.TxoSID
	Record ledger.OpenAssetRecord
	Amount uint64
}

// Selection is the result of coin selection. Inputs keep the order in which
// the owned outputs were listed and Total is the sum of their amounts.
type Selection struct {
	Inputs []SelectedInput
	Total  uint64
}

// SIDs returns the selected output ids in order.
func (s *Selection) SIDs() []ledger.TxoSID {
	sids := make([]ledger.TxoSID, len(s.Inputs))
	for i, in := range s.Inputs {
		sids[i] = in.SID
	}
	return sids
}

// SelectOptions tunes Select. The zero value opens public records only and
// stops early.
type SelectOptions struct {
	// Opener opens each owned record. Nil means PublicRecordOpener.
	Opener RecordOpener

	// Exclude skips outputs before they are opened, e.g. outputs already
	// reserved by a pending transfer.
	Exclude func(ledger.TxoSID) bool

	// Sweep collects every matching output instead of stopping once the
	// threshold is exceeded.
	Sweep bool
}

// Select walks owned in order and collects outputs of asset until the running
// total strictly exceeds threshold. Outputs of other assets are skipped and
// zero-amount outputs are counted but not spent. Reaching exactly threshold
// after the last output is sufficient; anything less fails with an
// *InsufficientFundsError carrying the shortfall.
func Select(owned []ledger.OwnedUtxo, owner ledger.PublicKey, asset ledger.AssetType, threshold uint64, opts SelectOptions) (*Selection, error) {
	opener := opts.Opener
	if opener == nil {
		opener = PublicRecordOpener
	}

	sel := &Selection{}
	for _, u := range owned {
		if opts.Exclude != nil && opts.Exclude(u.SID) {
			continue
		}
		oar, err := opener.Open(u.Output.Record, u.OwnerMemo, owner)
		if err != nil {
			return nil, fmt.Errorf("%w: open output %s: %w", ErrLedgerBuilder, u.SID, err)
		}
		if oar.AssetType != asset {
			continue
		}

		total, carry := bits.Add64(sel.Total, oar.Amount, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: collected total overflows at output %s", ErrInvalidParams, u.SID)
		}
		sel.Total = total
		if oar.Amount != 0 {
			sel.Inputs = append(sel.Inputs, SelectedInput{SID: u.SID, Record: oar, Amount: oar.Amount})
		}

		if !opts.Sweep && sel.Total > threshold {
			break
		}
	}

	if sel.Total < threshold {
		return nil, insufficient(threshold, sel.Total)
	}
	return sel, nil
}
