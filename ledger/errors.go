package ledger

import "errors"

var (
	// ErrInvalidPublicKey indicates a public key has the wrong length or encoding.
	ErrInvalidPublicKey = errors.New("ledger: invalid public key")

	// ErrConfidentialRecord indicates a record hides its amount or asset type and
	// cannot be handled without a confidential-record opener.
	ErrConfidentialRecord = errors.New("ledger: confidential record not supported")

	// ErrNotOwner indicates a record is not owned by the opening key.
	ErrNotOwner = errors.New("ledger: record not owned by key")

	// ErrInvalidRecord indicates a malformed record or template.
	ErrInvalidRecord = errors.New("ledger: invalid asset record")

	// ErrInvalidInput indicates an input cannot be added to a transfer.
	ErrInvalidInput = errors.New("ledger: invalid transfer input")

	// ErrUnbalanced indicates transfer inputs and outputs do not sum to the same
	// amount for some asset type.
	ErrUnbalanced = errors.New("ledger: transfer inputs and outputs are unbalanced")

	// ErrBuilderState indicates a builder method was called out of order.
	ErrBuilderState = errors.New("ledger: builder used out of order")

	// ErrSigningFailed indicates a signer returned an error or an empty signature.
	ErrSigningFailed = errors.New("ledger: signing failed")

	// ErrInvalidWire indicates a value could not be decoded from its JSON wire form.
	ErrInvalidWire = errors.New("ledger: invalid wire encoding")
)
