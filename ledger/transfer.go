package ledger

import (
	"encoding/json"
	"fmt"
	"math/bits"
)

// XfrBody is the record-level body of a transfer note.
type XfrBody struct {
	Inputs      []BlindAssetRecord `json:"inputs"`
	Outputs     []BlindAssetRecord `json:"outputs"`
	OwnersMemos []*OwnerMemo       `json:"owners_memos"`
}

// TransferAssetBody is the signed part of a transfer operation.
type TransferAssetBody struct {
	Inputs       []TxoRef     `json:"inputs"`
	Outputs      []TxOutput   `json:"outputs"`
	Transfer     XfrBody      `json:"transfer"`
	TransferType TransferType `json:"transfer_type"`
}

// IndexedSignature is a signature over a body together with its signer.
type IndexedSignature struct {
	Address   PublicKey `json:"address"`
	Signature Signature `json:"signature"`
}

// TransferAsset is a complete, signed transfer operation.
type TransferAsset struct {
	Body           TransferAssetBody  `json:"body"`
	BodySignatures []IndexedSignature `json:"body_signatures"`
}

// Operation is one ledger operation. Only transfers are built here.
type Operation struct {
	TransferAsset *TransferAsset `json:"TransferAsset,omitempty"`
}

// BodyDigest returns the digest signed by transfer body signatures.
func (b *TransferAssetBody) BodyDigest() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: transfer body: %w", ErrInvalidWire, err)
	}
	return Digest(data), nil
}

// TransferOperationBuilder accumulates inputs and outputs of one transfer
// operation. Methods must be called in the order AddInput*, AddOutput*,
// Create, Sign, Transaction.
type TransferOperationBuilder struct {
	inputRefs   []TxoRef
	inputs      []OpenAssetRecord
	outputs     []TxOutput
	memos       []*OwnerMemo
	op          *TransferAsset
	transferred bool
}

// NewTransferOperationBuilder returns an empty builder.
func NewTransferOperationBuilder() *TransferOperationBuilder {
	return &TransferOperationBuilder{}
}

// AddInput spends the opened record at ref. The whole record must be spent.
func (b *TransferOperationBuilder) AddInput(ref TxoRef, oar OpenAssetRecord, amount uint64) error {
	if b.op != nil {
		return fmt.Errorf("%w: input added after create", ErrBuilderState)
	}
	if amount != oar.Amount {
		return fmt.Errorf("%w: spend %d of a %d record", ErrInvalidInput, amount, oar.Amount)
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero-amount input", ErrInvalidInput)
	}
	b.inputRefs = append(b.inputRefs, ref)
	b.inputs = append(b.inputs, oar)
	return nil
}

// AddOutput blinds t and appends it as the next output, carrying memo if set.
func (b *TransferOperationBuilder) AddOutput(t AssetRecordTemplate, memo *string) error {
	if b.op != nil {
		return fmt.Errorf("%w: output added after create", ErrBuilderState)
	}
	rec, ownerMemo, err := BlindTemplate(t)
	if err != nil {
		return fmt.Errorf("%w: output %d: %w", ErrInvalidRecord, len(b.outputs), err)
	}
	b.outputs = append(b.outputs, TxOutput{Record: rec, Memo: memo})
	b.memos = append(b.memos, ownerMemo)
	return nil
}

// Create fixes the operation shape after checking that inputs and outputs
// balance for every asset type.
func (b *TransferOperationBuilder) Create(tt TransferType) error {
	if b.op != nil {
		return fmt.Errorf("%w: create called twice", ErrBuilderState)
	}
	if tt != TransferStandard {
		return fmt.Errorf("%w: unsupported transfer type %q", ErrInvalidRecord, tt)
	}
	if len(b.inputs) == 0 || len(b.outputs) == 0 {
		return fmt.Errorf("%w: need at least one input and one output", ErrInvalidRecord)
	}
	if err := b.checkBalance(); err != nil {
		return err
	}

	body := TransferAssetBody{
		Inputs:       append([]TxoRef(nil), b.inputRefs...),
		Outputs:      append([]TxOutput(nil), b.outputs...),
		TransferType: tt,
	}
	body.Transfer.Inputs = make([]BlindAssetRecord, len(b.inputs))
	for i, in := range b.inputs {
		body.Transfer.Inputs[i] = in.Record
	}
	body.Transfer.Outputs = make([]BlindAssetRecord, len(b.outputs))
	for i, out := range b.outputs {
		body.Transfer.Outputs[i] = out.Record
	}
	body.Transfer.OwnersMemos = append([]*OwnerMemo(nil), b.memos...)

	b.op = &TransferAsset{Body: body}
	return nil
}

func (b *TransferOperationBuilder) checkBalance() error {
	in := make(map[AssetType]uint64)
	for _, r := range b.inputs {
		sum, carry := bits.Add64(in[r.AssetType], r.Amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: input total overflows for asset %s", ErrUnbalanced, r.AssetType)
		}
		in[r.AssetType] = sum
	}
	out := make(map[AssetType]uint64)
	for _, o := range b.outputs {
		code := o.Record.AssetType.Code
		sum, carry := bits.Add64(out[code], o.Record.Amount.Value, 0)
		if carry != 0 {
			return fmt.Errorf("%w: output total overflows for asset %s", ErrUnbalanced, code)
		}
		out[code] = sum
	}
	for asset, total := range in {
		if out[asset] != total {
			return fmt.Errorf("%w: asset %s in %d out %d", ErrUnbalanced, asset, total, out[asset])
		}
	}
	for asset, total := range out {
		if _, ok := in[asset]; !ok {
			return fmt.Errorf("%w: asset %s out %d with no inputs", ErrUnbalanced, asset, total)
		}
	}
	return nil
}

// Sign adds s's signature over the operation body.
func (b *TransferOperationBuilder) Sign(s Signer) error {
	if b.op == nil {
		return fmt.Errorf("%w: sign before create", ErrBuilderState)
	}
	if b.transferred {
		return fmt.Errorf("%w: sign after extraction", ErrBuilderState)
	}
	digest, err := b.op.Body.BodyDigest()
	if err != nil {
		return err
	}
	sig, err := s.Sign(digest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	if len(sig) == 0 {
		return fmt.Errorf("%w: empty signature", ErrSigningFailed)
	}
	b.op.BodySignatures = append(b.op.BodySignatures, IndexedSignature{
		Address:   s.PublicKey(),
		Signature: sig,
	})
	return nil
}

// Transaction extracts the signed operation. The builder cannot be reused.
func (b *TransferOperationBuilder) Transaction() (Operation, error) {
	if b.op == nil {
		return Operation{}, fmt.Errorf("%w: extract before create", ErrBuilderState)
	}
	if len(b.op.BodySignatures) == 0 {
		return Operation{}, fmt.Errorf("%w: extract before sign", ErrBuilderState)
	}
	if b.transferred {
		return Operation{}, fmt.Errorf("%w: operation already extracted", ErrBuilderState)
	}
	b.transferred = true
	return Operation{TransferAsset: b.op}, nil
}
