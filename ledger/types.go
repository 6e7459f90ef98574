// Package ledger models the UTXO ledger's transfer data structures and the
// builders that assemble them into signed transactions.
//
// Only non-confidential records are opened and built here. Hidden amounts and
// asset types need a confidential-record capability supplied by the caller.
package ledger

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// TxFeeMin is the minimum fee, in base units of the base asset, that every
	// transaction must burn.
	TxFeeMin = uint64(10_000)

	// BaseAssetDecimals is the number of decimal places of the base asset.
	BaseAssetDecimals = 6

	// AssetTypeLen is the length of an asset type code.
	AssetTypeLen = 32

	// PublicKeyLen is the length of a compressed secp256k1 public key.
	PublicKeyLen = 33
)

// AssetType identifies an asset on the ledger.
type AssetType [AssetTypeLen]byte

// BaseAssetType is the ledger's native fungible asset, used to pay fees.
var BaseAssetType = AssetType{}

// String returns the asset type as URL-safe base64.
func (a AssetType) String() string {
	return base64.URLEncoding.EncodeToString(a[:])
}

// PublicKey is a compressed public key as carried on the ledger.
type PublicKey [PublicKeyLen]byte

// BurnPublicKey is the fixed, unspendable fee recipient. The all-zero
// encoding is not a point on the curve, so nothing can sign for it.
var BurnPublicKey = PublicKey{}

// PublicKeyFromBytes copies b into a PublicKey after a length check.
// It does not validate that b is a curve point.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLen {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeyLen, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the URL-safe base64 encoding used in ledger endpoints.
func (pk PublicKey) String() string {
	return base64.URLEncoding.EncodeToString(pk[:])
}

// IsBurn reports whether pk is the burn address.
func (pk PublicKey) IsBurn() bool {
	return pk == BurnPublicKey
}

// MarshalJSON encodes the key as a URL-safe base64 string.
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.String())
}

// UnmarshalJSON decodes a URL-safe or standard base64 string.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: public key: %w", ErrInvalidWire, err)
	}
	b, err := DecodeBase64(s)
	if err != nil {
		return fmt.Errorf("%w: public key: %w", ErrInvalidWire, err)
	}
	decoded, err := PublicKeyFromBytes(b)
	if err != nil {
		return err
	}
	*pk = decoded
	return nil
}

// DecodeBase64 accepts URL-safe or standard base64, padded or not.
func DecodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding, base64.RawURLEncoding,
		base64.StdEncoding, base64.RawStdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: not base64", ErrInvalidWire)
}

// TxoSID is the ledger-wide index of a transaction output.
type TxoSID uint64

// String returns the decimal form used as JSON object keys.
func (s TxoSID) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// ParseTxoSID parses the decimal form of a TxoSID.
func ParseTxoSID(s string) (TxoSID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: txo sid %q: %w", ErrInvalidWire, s, err)
	}
	return TxoSID(v), nil
}

// TxoRefKind distinguishes absolute from transaction-relative output references.
type TxoRefKind int

const (
	// TxoRefAbsolute points at an output already on the ledger.
	TxoRefAbsolute TxoRefKind = iota
	// TxoRefRelative points at an output of an earlier operation in the same transaction.
	TxoRefRelative
)

// TxoRef references a transaction output being spent.
type TxoRef struct {
	Kind  TxoRefKind
	Value uint64
}

// AbsoluteRef returns a reference to the ledger output sid.
func AbsoluteRef(sid TxoSID) TxoRef {
	return TxoRef{Kind: TxoRefAbsolute, Value: uint64(sid)}
}

// MarshalJSON encodes the reference as {"Absolute":n} or {"Relative":n}.
func (r TxoRef) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case TxoRefAbsolute:
		return json.Marshal(map[string]uint64{"Absolute": r.Value})
	case TxoRefRelative:
		return json.Marshal(map[string]uint64{"Relative": r.Value})
	default:
		return nil, fmt.Errorf("%w: unknown txo ref kind %d", ErrInvalidWire, r.Kind)
	}
}

// UnmarshalJSON decodes {"Absolute":n} or {"Relative":n}.
func (r *TxoRef) UnmarshalJSON(data []byte) error {
	var m map[string]uint64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: txo ref: %w", ErrInvalidWire, err)
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: txo ref must have exactly one variant", ErrInvalidWire)
	}
	if v, ok := m["Absolute"]; ok {
		*r = TxoRef{Kind: TxoRefAbsolute, Value: v}
		return nil
	}
	if v, ok := m["Relative"]; ok {
		*r = TxoRef{Kind: TxoRefRelative, Value: v}
		return nil
	}
	return fmt.Errorf("%w: unknown txo ref variant", ErrInvalidWire)
}

// TransferType selects the validation rules applied to a transfer.
type TransferType string

const (
	// TransferStandard is an ordinary transfer with no debt semantics.
	TransferStandard TransferType = "Standard"
	// TransferDebtSwap is a debt-swap transfer. Not produced by this library.
	TransferDebtSwap TransferType = "DebtSwap"
)
