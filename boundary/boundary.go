// Package boundary adapts raw caller buffers to the transfer pipeline. Every
// buffer is checked once here; the packages below only see typed values.
// Failures come back as errors that CodeOf maps to a stable integer code.
package boundary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libxfr-go/ledger"
	"github.com/bitfsorg/libxfr-go/network"
	"github.com/bitfsorg/libxfr-go/tx"
	"github.com/bitfsorg/libxfr-go/wallet"
)

// MaxFieldLen bounds every input buffer.
const MaxFieldLen = 4096

// SwapRequest is a swap transfer as raw buffers: fee to the burn key, a
// zero-value memo output to Recipient, change to the sender and Price (a
// decimal base-asset amount) to PriceReceiver.
type SwapRequest struct {
	KeyMaterial   []byte
	PriceReceiver []byte
	Recipient     []byte
	TokenAmount   []byte
	Endpoint      []byte
	Ticker        []byte
	Price         []byte
}

// TransferRequest is a direct transfer as raw buffers. Amount is a decimal
// base-asset amount, or "all" to sweep every owned output.
type TransferRequest struct {
	KeyMaterial []byte
	Recipient   []byte
	TokenAmount []byte
	Endpoint    []byte
	Ticker      []byte
	Amount      []byte
}

// SweepAmount requests a sweep in TransferRequest.Amount.
const SweepAmount = "all"

// Builder runs boundary calls. The zero configuration reads the process
// environment for endpoint defaults and uses the system DNS resolver.
type Builder struct {
	env          map[string]string
	network      string
	resolver     network.DNSResolver
	clientOpts   []network.Option
	pipelineOpts []tx.Option
	logger       zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithEnv sets the LIBXFR_ variables used to fill endpoint, timeout and retries.
func WithEnv(env map[string]string) Option { return func(b *Builder) { b.env = env } }

// WithNetwork selects the preset used when no endpoint is given.
func WithNetwork(name string) Option { return func(b *Builder) { b.network = name } }

// WithResolver sets the resolver for srv:// endpoints.
func WithResolver(r network.DNSResolver) Option { return func(b *Builder) { b.resolver = r } }

// WithClientOptions adds options to every ledger client.
func WithClientOptions(opts ...network.Option) Option {
	return func(b *Builder) { b.clientOpts = append(b.clientOpts, opts...) }
}

// WithPipelineOptions adds options to every pipeline.
func WithPipelineOptions(opts ...tx.Option) Option {
	return func(b *Builder) { b.pipelineOpts = append(b.pipelineOpts, opts...) }
}

// WithLogger sets the logger passed down to clients and pipelines.
func WithLogger(l zerolog.Logger) Option { return func(b *Builder) { b.logger = l } }

// New returns a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		network:  "testnet",
		resolver: network.DefaultDNSResolver,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if v := b.env["LIBXFR_NETWORK"]; v != "" {
		b.network = v
	}
	if v, err := strconv.ParseBool(b.env["LIBXFR_DNSSEC"]); err == nil && v {
		b.resolver = network.NewDNSSECResolver("")
	}
	return b
}

// BuildSwap builds and serializes a swap transfer.
func (b *Builder) BuildSwap(ctx context.Context, r SwapRequest) (string, error) {
	key, err := b.sender(r.KeyMaterial)
	if err != nil {
		return "", err
	}
	recipient, err := recipientKey("recipient", r.Recipient)
	if err != nil {
		return "", err
	}
	receiver, err := recipientKey("price receiver", r.PriceReceiver)
	if err != nil {
		return "", err
	}
	fields, err := texts(map[string][]byte{
		"ticker": r.Ticker, "token amount": r.TokenAmount, "price": r.Price, "endpoint": r.Endpoint,
	})
	if err != nil {
		return "", err
	}
	price, err := tx.ParseAmount(fields["price"], ledger.BaseAssetDecimals)
	if err != nil {
		return "", err
	}
	return b.build(ctx, fields["endpoint"], tx.Request{
		Sender:      key,
		Recipient:   recipient,
		Ticker:      fields["ticker"],
		TokenAmount: fields["token amount"],
		Variant:     tx.Swap{Receiver: receiver, Price: price},
	})
}

// BuildTransfer builds and serializes a direct transfer.
func (b *Builder) BuildTransfer(ctx context.Context, r TransferRequest) (string, error) {
	key, err := b.sender(r.KeyMaterial)
	if err != nil {
		return "", err
	}
	recipient, err := recipientKey("recipient", r.Recipient)
	if err != nil {
		return "", err
	}
	fields, err := texts(map[string][]byte{
		"ticker": r.Ticker, "token amount": r.TokenAmount, "amount": r.Amount, "endpoint": r.Endpoint,
	})
	if err != nil {
		return "", err
	}
	variant := tx.Direct{Sweep: strings.EqualFold(fields["amount"], SweepAmount)}
	if !variant.Sweep {
		variant.Amount, err = tx.ParseAmount(fields["amount"], ledger.BaseAssetDecimals)
		if err != nil {
			return "", err
		}
	}
	return b.build(ctx, fields["endpoint"], tx.Request{
		Sender:      key,
		Recipient:   recipient,
		Ticker:      fields["ticker"],
		TokenAmount: fields["token amount"],
		Variant:     variant,
	})
}

// SeqID returns the current ledger sequence id at endpoint.
func (b *Builder) SeqID(ctx context.Context, endpoint []byte) (uint64, error) {
	ep, err := text("endpoint", endpoint)
	if err != nil {
		return 0, err
	}
	client, err := b.client(ep)
	if err != nil {
		return 0, err
	}
	return tx.NewPipeline(client, b.pipeline()...).SeqID(ctx)
}

func (b *Builder) build(ctx context.Context, endpoint string, req tx.Request) (string, error) {
	client, err := b.client(endpoint)
	if err != nil {
		return "", err
	}
	res, err := tx.NewPipeline(client, b.pipeline()...).Build(ctx, req)
	if err != nil {
		b.logger.Debug().Str("kind", tx.Kind(err)).Err(err).Msg("boundary build failed")
		return "", err
	}
	return res.Payload, nil
}

func (b *Builder) pipeline() []tx.Option {
	return append([]tx.Option{tx.WithLogger(b.logger)}, b.pipelineOpts...)
}

// client resolves endpoint (flags, then env, then network preset), runs SRV
// discovery if needed and returns a ledger client.
func (b *Builder) client(endpoint string) (*network.Client, error) {
	cfg, err := network.ResolveConfig(&network.ClientConfig{Endpoint: endpoint, Retries: network.RetriesUnset}, b.env, b.network)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tx.ErrInvalidParams, err)
	}
	resolved, err := network.ResolveEndpoint(cfg.Endpoint, b.resolver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tx.ErrRemoteFetch, err)
	}
	cfg.Endpoint = resolved
	opts := append([]network.Option{network.WithLogger(b.logger)}, b.clientOpts...)
	client, err := network.NewClientFromConfig(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tx.ErrInvalidParams, err)
	}
	return client, nil
}

func (b *Builder) sender(material []byte) (*wallet.KeyPair, error) {
	if len(material) == 0 || len(material) > MaxFieldLen {
		return nil, fmt.Errorf("%w: sender key material length %d", tx.ErrKeyDecode, len(material))
	}
	kp, err := wallet.ParseKeyMaterial(material)
	if err != nil {
		return nil, fmt.Errorf("%w: sender: %w", tx.ErrKeyDecode, err)
	}
	return kp, nil
}

func recipientKey(name string, buf []byte) (ledger.PublicKey, error) {
	s, err := text(name, buf)
	if err != nil {
		return ledger.PublicKey{}, err
	}
	pk, err := wallet.DecodePublicKey(strings.TrimSpace(s))
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("%w: %s: %w", tx.ErrKeyDecode, name, err)
	}
	return pk, nil
}

func texts(bufs map[string][]byte) (map[string]string, error) {
	out := make(map[string]string, len(bufs))
	for name, buf := range bufs {
		s, err := text(name, buf)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}

func text(name string, buf []byte) (string, error) {
	if len(buf) > MaxFieldLen {
		return "", fmt.Errorf("%w: %s longer than %d bytes", tx.ErrInvalidParams, name, MaxFieldLen)
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", tx.ErrInvalidParams, name)
	}
	return strings.TrimSpace(string(buf)), nil
}
