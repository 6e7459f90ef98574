package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// DefaultWindow is how many sequence ids a reservation stays pending. After
// that the transfer has either landed, in which case the ledger no longer
// lists its inputs, or it was dropped and the inputs are free again.
const DefaultWindow = 20

// Journal reserves outputs for built transfers and releases them once the
// window has passed.
type Journal struct {
	store  Store
	window uint64
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Journal.
type Option func(*Journal)

// WithWindow sets the pending window in sequence ids.
func WithWindow(w uint64) Option { return func(j *Journal) { j.window = w } }

// WithLogger sets the journal logger.
func WithLogger(l zerolog.Logger) Option { return func(j *Journal) { j.logger = l } }

// New returns a journal over store.
func New(store Store, opts ...Option) (*Journal, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	j := &Journal{store: store, window: DefaultWindow, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// pending reports whether e is still inside the window at seqID.
func (j *Journal) pending(e *Entry, seqID uint64) bool {
	return seqID < e.SeqID || seqID-e.SeqID < j.window
}

// Reserved returns every output held by an entry still pending at seqID.
func (j *Journal) Reserved(seqID uint64) (map[ledger.TxoSID]bool, error) {
	entries, err := j.store.List()
	if err != nil {
		return nil, fmt.Errorf("journal: list entries: %w", err)
	}
	out := make(map[ledger.TxoSID]bool)
	for _, e := range entries {
		if !j.pending(e, seqID) {
			continue
		}
		for _, sid := range e.SIDs {
			out[sid] = true
		}
	}
	return out, nil
}

// Reserve records that the transaction with digest, built at seqID, spends sids.
// Reserving the same digest twice is a no-op.
func (j *Journal) Reserve(seqID uint64, digest []byte, sids []ledger.TxoSID) error {
	err := j.store.Put(&Entry{Digest: digest, SeqID: seqID, SIDs: sids, CreatedAt: j.now().UTC()})
	if errors.Is(err, ErrDuplicateEntry) {
		return nil
	}
	if err != nil {
		return err
	}
	j.logger.Debug().Uint64("seq_id", seqID).Int("outputs", len(sids)).Msg("reserved pending spend")
	return nil
}

// Release drops the reservation for digest, e.g. after the ledger rejected it.
func (j *Journal) Release(digest []byte) error {
	return j.store.Delete(digest)
}

// Prune removes entries whose window has passed at seqID.
func (j *Journal) Prune(seqID uint64) (int, error) {
	if seqID < j.window {
		return 0, nil
	}
	n, err := j.store.DeleteBefore(seqID - j.window + 1)
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	if n > 0 {
		j.logger.Debug().Uint64("seq_id", seqID).Int("pruned", n).Msg("pruned journal")
	}
	return n, nil
}

// Entries lists all entries in sequence order.
func (j *Journal) Entries() ([]*Entry, error) {
	return j.store.List()
}
