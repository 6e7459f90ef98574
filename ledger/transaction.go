package ledger

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
)

// NoReplayToken pins a transaction to a ledger sequence id. The random part
// keeps two otherwise identical transactions distinct.
type NoReplayToken struct {
	Rand  uint64
	SeqID uint64
}

// MarshalJSON encodes the token as [rand, seq_id].
func (t NoReplayToken) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{t.Rand, t.SeqID})
}

// UnmarshalJSON decodes [rand, seq_id].
func (t *NoReplayToken) UnmarshalJSON(data []byte) error {
	var pair [2]uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: no replay token: %w", ErrInvalidWire, err)
	}
	t.Rand, t.SeqID = pair[0], pair[1]
	return nil
}

// TransactionBody is the part of a transaction covered by its signatures.
type TransactionBody struct {
	NoReplayToken NoReplayToken `json:"no_replay_token"`
	Operations    []Operation   `json:"operations"`
	Memos         []string      `json:"memos"`
}

// Transaction is the final payload submitted to the ledger.
type Transaction struct {
	Body          TransactionBody      `json:"body"`
	Signatures    []Signature          `json:"signatures"`
	PubkeySignMap map[string]Signature `json:"pubkey_sign_map"`
}

// BodyDigest returns the digest signed by transaction-level signatures.
func (t *Transaction) BodyDigest() ([]byte, error) {
	data, err := json.Marshal(&t.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction body: %w", ErrInvalidWire, err)
	}
	return Digest(data), nil
}

// TransactionBuilder accumulates operations for one transaction scoped to a
// ledger sequence id.
type TransactionBuilder struct {
	txn Transaction
}

// NewTransactionBuilder returns a builder for seqID with a random token.
func NewTransactionBuilder(seqID uint64) (*TransactionBuilder, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("ledger: no replay token: %w", err)
	}
	return NewTransactionBuilderWithToken(NoReplayToken{
		Rand:  binary.LittleEndian.Uint64(buf[:]),
		SeqID: seqID,
	}), nil
}

// NewTransactionBuilderWithToken returns a builder with a fixed token.
func NewTransactionBuilderWithToken(token NoReplayToken) *TransactionBuilder {
	return &TransactionBuilder{
		txn: Transaction{
			Body: TransactionBody{
				NoReplayToken: token,
				Operations:    []Operation{},
				Memos:         []string{},
			},
			Signatures:    []Signature{},
			PubkeySignMap: map[string]Signature{},
		},
	}
}

// SeqID returns the sequence id the builder is scoped to.
func (b *TransactionBuilder) SeqID() uint64 {
	return b.txn.Body.NoReplayToken.SeqID
}

// AddOperation appends op. Signatures collected so far no longer cover the
// body and are dropped.
func (b *TransactionBuilder) AddOperation(op Operation) {
	b.txn.Body.Operations = append(b.txn.Body.Operations, op)
	b.txn.Signatures = []Signature{}
	b.txn.PubkeySignMap = map[string]Signature{}
}

// SignToMap signs the transaction body and records the signature under the
// signer's public key.
func (b *TransactionBuilder) SignToMap(s Signer) error {
	if len(b.txn.Body.Operations) == 0 {
		return fmt.Errorf("%w: sign with no operations", ErrBuilderState)
	}
	digest, err := b.txn.BodyDigest()
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
	b.txn.PubkeySignMap[s.PublicKey().String()] = sig
	return nil
}

// Transaction returns a copy of the built transaction. Later builder calls
// do not change it.
func (b *TransactionBuilder) Transaction() *Transaction {
	txn := b.txn
	txn.Body.Operations = slices.Clone(b.txn.Body.Operations)
	txn.Body.Memos = slices.Clone(b.txn.Body.Memos)
	txn.Signatures = make([]Signature, len(b.txn.Signatures))
	for i, sig := range b.txn.Signatures {
		txn.Signatures[i] = bytes.Clone(sig)
	}
	txn.PubkeySignMap = make(map[string]Signature, len(b.txn.PubkeySignMap))
	for k, sig := range b.txn.PubkeySignMap {
		txn.PubkeySignMap[k] = bytes.Clone(sig)
	}
	return &txn
}
