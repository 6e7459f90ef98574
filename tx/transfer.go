package tx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/libxfr-go/ledger"
	"github.com/bitfsorg/libxfr-go/memo"
)

// LedgerClient is the read side of the ledger the pipeline depends on.
// network.Client satisfies it.
type LedgerClient interface {
	SeqID(ctx context.Context) (uint64, error)
	OwnedUtxos(ctx context.Context, pk ledger.PublicKey) ([]ledger.OwnedUtxo, error)
}

// SpendJournal remembers outputs spent by transfers that were built but may
// not be on the ledger yet.
type SpendJournal interface {
	// Reserved returns the outputs reserved by transfers still considered
	// pending at seqID.
	Reserved(seqID uint64) (map[ledger.TxoSID]bool, error)

	// Reserve records that the transaction with digest, built at seqID,
	// spends sids.
	Reserve(seqID uint64, digest []byte, sids []ledger.TxoSID) error
}

// Request describes one transfer.
type Request struct {
	Sender    ledger.Signer
	Recipient ledger.PublicKey

	// Ticker and TokenAmount form the transfer memo. Both empty means no memo.
	Ticker      string
	TokenAmount string

	Variant Variant
}

// Result is a built transfer.
type Result struct {
	Transaction *ledger.Transaction
	Payload     string
	SeqID       uint64
	Selection   *Selection
	Plan        *Plan
}

// Pipeline builds signed transfer transactions against a ledger.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	client      LedgerClient
	fee         uint64
	asset       ledger.AssetType
	burn        ledger.PublicKey
	opener      RecordOpener
	journal     SpendJournal
	newTransfer func() TransferBuilder
	newTx       TransactionBuilderFactory
	logger      zerolog.Logger
	metrics     *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFee sets the fee burned by every transfer. Defaults to ledger.TxFeeMin.
func WithFee(fee uint64) Option { return func(p *Pipeline) { p.fee = fee } }

// WithAsset sets the asset being moved. Defaults to the base asset.
func WithAsset(a ledger.AssetType) Option { return func(p *Pipeline) { p.asset = a } }

// WithBurnKey sets the fee recipient. Defaults to ledger.BurnPublicKey.
func WithBurnKey(pk ledger.PublicKey) Option { return func(p *Pipeline) { p.burn = pk } }

// WithOpener sets how owned records are opened.
func WithOpener(o RecordOpener) Option { return func(p *Pipeline) { p.opener = o } }

// WithJournal excludes and records pending spends.
func WithJournal(j SpendJournal) Option { return func(p *Pipeline) { p.journal = j } }

// WithTransferBuilder replaces the transfer operation builder.
func WithTransferBuilder(f func() TransferBuilder) Option {
	return func(p *Pipeline) { p.newTransfer = f }
}

// WithTransactionBuilder replaces the transaction builder.
func WithTransactionBuilder(f TransactionBuilderFactory) Option {
	return func(p *Pipeline) { p.newTx = f }
}

// WithLogger sets the pipeline logger.
func WithLogger(l zerolog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithMetrics records build metrics.
func WithMetrics(m *Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// NewPipeline returns a pipeline reading from client.
func NewPipeline(client LedgerClient, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:      client,
		fee:         ledger.TxFeeMin,
		asset:       ledger.BaseAssetType,
		burn:        ledger.BurnPublicKey,
		opener:      PublicRecordOpener,
		newTransfer: NewTransferBuilder,
		newTx:       NewTransactionBuilder,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fee returns the fee burned by each transfer.
func (p *Pipeline) Fee() uint64 { return p.fee }

// SeqID returns the ledger's current sequence id.
func (p *Pipeline) SeqID(ctx context.Context) (uint64, error) {
	seqID, err := p.client.SeqID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: sequence id: %w", ErrRemoteFetch, err)
	}
	return seqID, nil
}

// Build runs the whole pipeline for req: it reads the sequence id and the
// sender's outputs concurrently, selects inputs, plans outputs, assembles
// and signs the operation and finalizes the transaction. The first failure
// aborts the build.
func (p *Pipeline) Build(ctx context.Context, req Request) (res *Result, err error) {
	started := time.Now()
	variant := "unknown"
	if req.Variant != nil {
		variant = req.Variant.Name()
	}
	defer func() {
		inputs := 0
		if res != nil {
			inputs = len(res.Selection.Inputs)
		}
		p.metrics.observe(variant, err, inputs, started)
	}()

	if req.Sender == nil {
		return nil, fmt.Errorf("%w: no sender key", ErrInvalidParams)
	}
	if req.Variant == nil {
		return nil, fmt.Errorf("%w: no transfer variant", ErrInvalidParams)
	}
	threshold, err := req.Variant.Threshold(p.fee)
	if err != nil {
		return nil, err
	}
	memoText, err := buildMemo(req.Ticker, req.TokenAmount)
	if err != nil {
		return nil, err
	}

	sender := req.Sender.PublicKey()
	log := p.logger.With().Str("variant", variant).Str("sender", sender.String()).Logger()

	var (
		txb   TransactionBuilder
		owned []ledger.OwnedUtxo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := Sequence(gctx, p.client, p.newTx)
		txb = b
		return err
	})
	g.Go(func() error {
		utxos, err := p.client.OwnedUtxos(gctx, sender)
		if err != nil {
			return fmt.Errorf("%w: owned utxos: %w", ErrRemoteFetch, err)
		}
		owned = utxos
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	seqID := txb.SeqID()
	log.Debug().Uint64("seq_id", seqID).Int("owned", len(owned)).Msg("ledger state fetched")

	opts := SelectOptions{Opener: p.opener, Sweep: req.Variant.sweep()}
	if p.journal != nil {
		reserved, err := p.journal.Reserved(seqID)
		if err != nil {
			return nil, fmt.Errorf("tx: read spend journal: %w", err)
		}
		if len(reserved) > 0 {
			opts.Exclude = func(sid ledger.TxoSID) bool { return reserved[sid] }
			log.Debug().Int("reserved", len(reserved)).Msg("excluding pending spends")
		}
	}

	sel, err := Select(owned, sender, p.asset, threshold, opts)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("inputs", len(sel.Inputs)).Uint64("total", sel.Total).Msg("inputs selected")

	plan, err := BuildPlan(sel.Total, PlanParams{
		Fee:       p.fee,
		Asset:     p.asset,
		Sender:    sender,
		Recipient: req.Recipient,
		Burn:      p.burn,
		Memo:      memoText,
		Variant:   req.Variant,
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Int("outputs", len(plan.Outputs)).Uint64("payment", plan.Payment).
		Uint64("change", plan.Change).Msg("outputs planned")

	op, err := Assemble(p.newTransfer(), sel, plan, req.Sender)
	if err != nil {
		return nil, err
	}
	txn, err := Finalize(txb, op, req.Sender)
	if err != nil {
		return nil, err
	}
	payload, err := Serialize(txn)
	if err != nil {
		return nil, err
	}

	if p.journal != nil {
		digest, err := txn.BodyDigest()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		if err := p.journal.Reserve(seqID, digest, sel.SIDs()); err != nil {
			return nil, fmt.Errorf("tx: record pending spend: %w", err)
		}
	}

	log.Info().Uint64("seq_id", seqID).Int("inputs", len(sel.Inputs)).Msg("transfer built")
	return &Result{Transaction: txn, Payload: payload, SeqID: seqID, Selection: sel, Plan: plan}, nil
}

func buildMemo(ticker, amount string) (*string, error) {
	if ticker == "" && amount == "" {
		return nil, nil
	}
	s, err := memo.Encode(ticker, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: memo: %w", ErrInvalidParams, err)
	}
	return &s, nil
}

// Kind names the failure class of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrInvalidParams):
		return "invalid_params"
	case errors.Is(err, ErrKeyDecode):
		return "key_decode"
	case errors.Is(err, ErrRemoteFetch):
		return "remote_fetch"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrLedgerBuilder):
		return "ledger_builder"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	default:
		return "internal"
	}
}
