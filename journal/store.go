// Package journal tracks outputs spent by transfers that were built but are
// not yet known to be on the ledger, so that back-to-back transfers from the
// same key do not select them twice.
package journal

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// DigestSize is the length of a transaction body digest.
const DigestSize = 32

// Entry is one built transaction and the outputs it spends.
type Entry struct {
	Digest    []byte
	SeqID     uint64
	SIDs      []ledger.TxoSID
	CreatedAt time.Time
}

func (e *Entry) validate() error {
	if e == nil {
		return fmt.Errorf("%w: entry", ErrNilParam)
	}
	return validDigest(e.Digest)
}

func validDigest(d []byte) error {
	if len(d) != DigestSize {
		return fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidDigest, DigestSize, len(d))
	}
	return nil
}

// Store persists journal entries.
type Store interface {
	// Put stores an entry. Returns ErrDuplicateEntry if the digest exists.
	Put(e *Entry) error

	// Get retrieves an entry by digest.
	Get(digest []byte) (*Entry, error)

	// Delete removes an entry.
	Delete(digest []byte) error

	// List returns all entries ordered by sequence id.
	List() ([]*Entry, error)

	// DeleteBefore removes entries with SeqID < seqID and returns how many.
	DeleteBefore(seqID uint64) (int, error)
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*Entry)}
}

func (s *MemStore) Put(e *Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(e.Digest)
	if _, exists := s.entries[key]; exists {
		return ErrDuplicateEntry
	}
	cp := *e
	cp.Digest = bytes.Clone(e.Digest)
	cp.SIDs = append([]ledger.TxoSID(nil), e.SIDs...)
	s.entries[key] = &cp
	return nil
}

func (s *MemStore) Get(digest []byte) (*Entry, error) {
	if err := validDigest(digest); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[string(digest)]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemStore) Delete(digest []byte) error {
	if err := validDigest(digest); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[string(digest)]; !ok {
		return ErrEntryNotFound
	}
	delete(s.entries, string(digest))
	return nil
}

func (s *MemStore) List() ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sortEntries(out)
	return out, nil
}

func (s *MemStore) DeleteBefore(seqID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.entries {
		if e.SeqID < seqID {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func sortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SeqID != entries[j].SeqID {
			return entries[i].SeqID < entries[j].SeqID
		}
		return bytes.Compare(entries[i].Digest, entries[j].Digest) < 0
	})
}
