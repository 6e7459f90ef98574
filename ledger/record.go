package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// XfrAmount is a record amount, either public or committed.
type XfrAmount struct {
	Value        uint64          // valid when Confidential is nil
	Confidential json.RawMessage // opaque commitment pair
}

// IsConfidential reports whether the amount is hidden.
func (a XfrAmount) IsConfidential() bool { return a.Confidential != nil }

// MarshalJSON encodes {"NonConfidential":"<n>"} or {"Confidential":...}.
func (a XfrAmount) MarshalJSON() ([]byte, error) {
	if a.IsConfidential() {
		return json.Marshal(map[string]json.RawMessage{"Confidential": a.Confidential})
	}
	return json.Marshal(map[string]string{"NonConfidential": strconv.FormatUint(a.Value, 10)})
}

// UnmarshalJSON accepts the public amount as a decimal string or a number.
func (a *XfrAmount) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: amount: %w", ErrInvalidWire, err)
	}
	if raw, ok := m["Confidential"]; ok {
		*a = XfrAmount{Confidential: raw}
		return nil
	}
	raw, ok := m["NonConfidential"]
	if !ok {
		return fmt.Errorf("%w: amount has no known variant", ErrInvalidWire)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Some ledger versions emit the amount as a bare number.
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("%w: amount value: %w", ErrInvalidWire, err)
		}
		*a = XfrAmount{Value: n}
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: amount value %q: %w", ErrInvalidWire, s, err)
	}
	*a = XfrAmount{Value: n}
	return nil
}

// XfrAssetType is a record asset type, either public or committed.
type XfrAssetType struct {
	Code         AssetType       // valid when Confidential is nil
	Confidential json.RawMessage // opaque commitment
}

// IsConfidential reports whether the asset type is hidden.
func (t XfrAssetType) IsConfidential() bool { return t.Confidential != nil }

// MarshalJSON encodes {"NonConfidential":[32 bytes]} or {"Confidential":...}.
func (t XfrAssetType) MarshalJSON() ([]byte, error) {
	if t.IsConfidential() {
		return json.Marshal(map[string]json.RawMessage{"Confidential": t.Confidential})
	}
	return json.Marshal(map[string]AssetType{"NonConfidential": t.Code})
}

// UnmarshalJSON decodes either variant.
func (t *XfrAssetType) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: asset type: %w", ErrInvalidWire, err)
	}
	if raw, ok := m["Confidential"]; ok {
		*t = XfrAssetType{Confidential: raw}
		return nil
	}
	raw, ok := m["NonConfidential"]
	if !ok {
		return fmt.Errorf("%w: asset type has no known variant", ErrInvalidWire)
	}
	var code AssetType
	if err := json.Unmarshal(raw, &code); err != nil {
		return fmt.Errorf("%w: asset type code: %w", ErrInvalidWire, err)
	}
	*t = XfrAssetType{Code: code}
	return nil
}

// BlindAssetRecord is an output record as stored on the ledger.
type BlindAssetRecord struct {
	Amount    XfrAmount    `json:"amount"`
	AssetType XfrAssetType `json:"asset_type"`
	PublicKey PublicKey    `json:"public_key"`
}

// IsConfidential reports whether either the amount or asset type is hidden.
func (r BlindAssetRecord) IsConfidential() bool {
	return r.Amount.IsConfidential() || r.AssetType.IsConfidential()
}

// OwnerMemo carries what the owner needs to open a confidential record.
type OwnerMemo struct {
	BlindShare json.RawMessage `json:"blind_share"`
	Lock       json.RawMessage `json:"lock"`
}

// OpenAssetRecord is the plaintext view of a record, held only while a
// transfer is being built.
type OpenAssetRecord struct {
	Record    BlindAssetRecord
	Amount    uint64
	AssetType AssetType
	Owner     PublicKey
}

// AssetRecordType selects which parts of a new record are hidden.
type AssetRecordType int

const (
	// NonConfidentialAmountNonConfidentialAssetType leaves both fields public.
	NonConfidentialAmountNonConfidentialAssetType AssetRecordType = iota
	// ConfidentialAmountNonConfidentialAssetType hides the amount.
	ConfidentialAmountNonConfidentialAssetType
	// NonConfidentialAmountConfidentialAssetType hides the asset type.
	NonConfidentialAmountConfidentialAssetType
	// ConfidentialAmountConfidentialAssetType hides both.
	ConfidentialAmountConfidentialAssetType
)

// RecordTypeFromFlags maps the two confidentiality flags to a record type.
func RecordTypeFromFlags(confidentialAmount, confidentialAsset bool) AssetRecordType {
	switch {
	case confidentialAmount && confidentialAsset:
		return ConfidentialAmountConfidentialAssetType
	case confidentialAmount:
		return ConfidentialAmountNonConfidentialAssetType
	case confidentialAsset:
		return NonConfidentialAmountConfidentialAssetType
	default:
		return NonConfidentialAmountNonConfidentialAssetType
	}
}

// AssetRecordTemplate describes an output before it is blinded.
type AssetRecordTemplate struct {
	Amount     uint64
	AssetType  AssetType
	RecordType AssetRecordType
	PublicKey  PublicKey
}

// NewTemplate returns a template with no asset tracing.
func NewTemplate(amount uint64, asset AssetType, recordType AssetRecordType, recipient PublicKey) AssetRecordTemplate {
	return AssetRecordTemplate{
		Amount:     amount,
		AssetType:  asset,
		RecordType: recordType,
		PublicKey:  recipient,
	}
}

// OpenRecord opens a non-confidential record owned by owner. The memo is
// ignored for public records.
func OpenRecord(rec BlindAssetRecord, memo *OwnerMemo, owner PublicKey) (OpenAssetRecord, error) {
	if rec.IsConfidential() {
		return OpenAssetRecord{}, ErrConfidentialRecord
	}
	if rec.PublicKey != owner {
		return OpenAssetRecord{}, fmt.Errorf("%w: record belongs to %s", ErrNotOwner, rec.PublicKey)
	}
	return OpenAssetRecord{
		Record:    rec,
		Amount:    rec.Amount.Value,
		AssetType: rec.AssetType.Code,
		Owner:     rec.PublicKey,
	}, nil
}

// BlindTemplate builds the ledger record for a template. Only public
// record types are produced; the returned owner memo is always nil for them.
func BlindTemplate(t AssetRecordTemplate) (BlindAssetRecord, *OwnerMemo, error) {
	if t.RecordType != NonConfidentialAmountNonConfidentialAssetType {
		return BlindAssetRecord{}, nil, ErrConfidentialRecord
	}
	return BlindAssetRecord{
		Amount:    XfrAmount{Value: t.Amount},
		AssetType: XfrAssetType{Code: t.AssetType},
		PublicKey: t.PublicKey,
	}, nil, nil
}
