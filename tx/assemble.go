package tx

import (
	"fmt"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// TransferBuilder assembles one transfer operation. ledger.TransferOperationBuilder
// is the production implementation.
type TransferBuilder interface {
	AddInput(ref ledger.TxoRef, oar ledger.OpenAssetRecord, amount uint64) error
	AddOutput(t ledger.AssetRecordTemplate, memo *string) error
	Create(tt ledger.TransferType) error
	Sign(s ledger.Signer) error
	Transaction() (ledger.Operation, error)
}

// NewTransferBuilder returns a fresh ledger transfer builder.
func NewTransferBuilder() TransferBuilder {
	return ledger.NewTransferOperationBuilder()
}

// Assemble drives b through every input of sel, every output of plan in
// order, a standard create and the sender's signature. The first failing
// step aborts and nothing is returned.
func Assemble(b TransferBuilder, sel *Selection, plan *Plan, sender ledger.Signer) (ledger.Operation, error) {
	if b == nil || sel == nil || plan == nil || sender == nil {
		return ledger.Operation{}, fmt.Errorf("%w: assemble needs a builder, selection, plan and signer", ErrInvalidParams)
	}

	for i, in := range sel.Inputs {
		if err := b.AddInput(ledger.AbsoluteRef(in.SID), in.Record, in.Amount); err != nil {
			return ledger.Operation{}, fmt.Errorf("%w: add input %d (%s): %w", ErrLedgerBuilder, i, in.SID, err)
		}
	}
	for i, out := range plan.Outputs {
		if err := b.AddOutput(out.Template, out.Memo); err != nil {
			return ledger.Operation{}, fmt.Errorf("%w: add output %d: %w", ErrLedgerBuilder, i, err)
		}
	}
	if err := b.Create(ledger.TransferStandard); err != nil {
		return ledger.Operation{}, fmt.Errorf("%w: create: %w", ErrLedgerBuilder, err)
	}
	if err := b.Sign(sender); err != nil {
		return ledger.Operation{}, fmt.Errorf("%w: sign operation: %w", ErrLedgerBuilder, err)
	}
	op, err := b.Transaction()
	if err != nil {
		return ledger.Operation{}, fmt.Errorf("%w: extract operation: %w", ErrLedgerBuilder, err)
	}
	return op, nil
}
