package ledger

import (
	"encoding/json"
	"fmt"
)

// TxOutput is a transaction output as served by the ledger.
type TxOutput struct {
	ID     *TxoSID          `json:"id"`
	Record BlindAssetRecord `json:"record"`
	Lien   *string          `json:"lien"`
	Memo   *string          `json:"memo"`
}

// OwnedUtxo is one unspent output owned by a key, in the order the ledger
// listed it.
type OwnedUtxo struct {
	SID       TxoSID
	Output    TxOutput
	OwnerMemo *OwnerMemo
}

// ownedUtxoEntry is the [utxo, owner_memo] pair of the owned_utxos response.
type ownedUtxoEntry struct {
	Utxo      TxOutput
	OwnerMemo *OwnerMemo
}

func (e *ownedUtxoEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: owned utxo entry: %w", ErrInvalidWire, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: owned utxo entry has %d elements, want 2", ErrInvalidWire, len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Utxo); err != nil {
		return fmt.Errorf("%w: owned utxo: %w", ErrInvalidWire, err)
	}
	if string(pair[1]) != "null" {
		var memo OwnerMemo
		if err := json.Unmarshal(pair[1], &memo); err != nil {
			return fmt.Errorf("%w: owner memo: %w", ErrInvalidWire, err)
		}
		e.OwnerMemo = &memo
	}
	return nil
}

// DecodeOwnedUtxos decodes an owned_utxos response body, keeping the order in
// which the outputs appear in the document. A sid listed twice is rejected.
func DecodeOwnedUtxos(data []byte) ([]OwnedUtxo, error) {
	var raw orderedObject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: owned utxos: %w", ErrInvalidWire, err)
	}

	utxos := make([]OwnedUtxo, 0, len(raw))
	seen := make(map[TxoSID]struct{}, len(raw))
	for _, member := range raw {
		sid, err := ParseTxoSID(member.key)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[sid]; dup {
			return nil, fmt.Errorf("%w: duplicate sid %s", ErrInvalidWire, member.key)
		}
		seen[sid] = struct{}{}
		var entry ownedUtxoEntry
		if err := json.Unmarshal(member.value, &entry); err != nil {
			return nil, fmt.Errorf("sid %s: %w", member.key, err)
		}
		utxos = append(utxos, OwnedUtxo{SID: sid, Output: entry.Utxo, OwnerMemo: entry.OwnerMemo})
	}
	return utxos, nil
}

// EncodeOwnedUtxos is the inverse of DecodeOwnedUtxos, used by test ledgers.
func EncodeOwnedUtxos(utxos []OwnedUtxo) ([]byte, error) {
	raw := make(orderedObject, 0, len(utxos))
	for _, u := range utxos {
		memo := json.RawMessage("null")
		if u.OwnerMemo != nil {
			b, err := json.Marshal(u.OwnerMemo)
			if err != nil {
				return nil, err
			}
			memo = b
		}
		out, err := json.Marshal(u.Output)
		if err != nil {
			return nil, err
		}
		pair, err := json.Marshal([]json.RawMessage{out, memo})
		if err != nil {
			return nil, err
		}
		raw = append(raw, objectMember{key: u.SID.String(), value: pair})
	}
	return json.Marshal(raw)
}
