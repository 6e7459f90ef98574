package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketEntries = []byte("entries")
	bucketBySeq   = []byte("entries_seq")
)

// BoltStore persists journal entries in a bbolt database. Entries are keyed
// by digest, with a secondary index of seq id + digest for pruning.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at dbPath, creating the parent
// directory if needed.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEntries, bucketBySeq} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

func seqKey(seqID uint64, digest []byte) []byte {
	k := make([]byte, 8+len(digest))
	binary.BigEndian.PutUint64(k, seqID)
	copy(k[8:], digest)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Put stores an entry. Returns ErrDuplicateEntry if the digest exists.
func (s *BoltStore) Put(e *Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b.Get(e.Digest) != nil {
			return ErrDuplicateEntry
		}
		data, err := encodeGob(e)
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
		if err := b.Put(e.Digest, data); err != nil {
			return fmt.Errorf("boltstore: put entry: %w", err)
		}
		if err := tx.Bucket(bucketBySeq).Put(seqKey(e.SeqID, e.Digest), []byte{}); err != nil {
			return fmt.Errorf("boltstore: put seq index: %w", err)
		}
		return nil
	})
}

// Get retrieves an entry by digest.
func (s *BoltStore) Get(digest []byte) (*Entry, error) {
	if err := validDigest(digest); err != nil {
		return nil, err
	}
	var e Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get(digest)
		if data == nil {
			return ErrEntryNotFound
		}
		if err := decodeGob(data, &e); err != nil {
			return fmt.Errorf("boltstore: decode entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes an entry and its index key.
func (s *BoltStore) Delete(digest []byte) error {
	if err := validDigest(digest); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		data := b.Get(digest)
		if data == nil {
			return ErrEntryNotFound
		}
		var e Entry
		if err := decodeGob(data, &e); err != nil {
			return fmt.Errorf("boltstore: decode entry: %w", err)
		}
		if err := b.Delete(digest); err != nil {
			return fmt.Errorf("boltstore: delete entry: %w", err)
		}
		if err := tx.Bucket(bucketBySeq).Delete(seqKey(e.SeqID, digest)); err != nil {
			return fmt.Errorf("boltstore: delete seq index: %w", err)
		}
		return nil
	})
}

// List returns all entries in seq id order.
func (s *BoltStore) List() ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		return tx.Bucket(bucketBySeq).ForEach(func(k, _ []byte) error {
			data := b.Get(k[8:])
			if data == nil {
				return nil // stale index key
			}
			var e Entry
			if err := decodeGob(data, &e); err != nil {
				return fmt.Errorf("boltstore: decode entry: %w", err)
			}
			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteBefore removes entries with SeqID < seqID.
func (s *BoltStore) DeleteBefore(seqID uint64) (int, error) {
	n := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(bucketBySeq)
		entries := tx.Bucket(bucketEntries)

		var stale [][]byte
		c := idx.Cursor()
		for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k[:8]) < seqID; k, _ = c.Next() {
			stale = append(stale, bytes.Clone(k))
		}
		for _, k := range stale {
			if err := entries.Delete(k[8:]); err != nil {
				return fmt.Errorf("boltstore: delete entry: %w", err)
			}
			if err := idx.Delete(k); err != nil {
				return fmt.Errorf("boltstore: delete seq index: %w", err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
