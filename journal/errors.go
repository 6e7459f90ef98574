package journal

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("journal: required parameter is nil")

	// ErrInvalidDigest indicates a transaction digest is not 32 bytes.
	ErrInvalidDigest = errors.New("journal: invalid transaction digest")

	// ErrDuplicateEntry indicates an entry for this digest already exists.
	ErrDuplicateEntry = errors.New("journal: duplicate entry")

	// ErrEntryNotFound indicates no entry exists for the digest.
	ErrEntryNotFound = errors.New("journal: entry not found")
)
