package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// maxBodySize bounds response bodies read from the ledger.
const maxBodySize = 32 << 20

// Route labels used for logging and metrics.
const (
	routeGlobalState = "global_state"
	routeOwnedUtxos  = "owned_utxos"
)

// Client is an HTTP client for the ledger query server. Every request gets a
// per-attempt timeout and transient failures are retried with backoff.
type Client struct {
	endpoint   string
	http       *http.Client
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
	logger     zerolog.Logger
	metrics    *Metrics
}

var _ LedgerService = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackoff sets the initial and maximum wait between retries.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) { c.backoff, c.maxBackoff = initial, max }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for an http(s) endpoint. Trailing slashes are
// trimmed so paths can be appended directly.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		http:       &http.Client{},
		timeout:    DefaultTimeout,
		retries:    DefaultRetries,
		backoff:    DefaultBackoff,
		maxBackoff: DefaultMaxBackoff,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retries < 0 {
		c.retries = 0
	}
	return c, nil
}

// NewClientFromConfig creates a client from a resolved configuration.
func NewClientFromConfig(cfg *ClientConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidEndpoint)
	}
	base := []Option{WithRetries(cfg.Retries)}
	if cfg.Timeout > 0 {
		base = append(base, WithTimeout(cfg.Timeout))
	}
	return NewClient(cfg.Endpoint, append(base, opts...)...)
}

// Endpoint returns the base URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GlobalState fetches /global_state.
func (c *Client) GlobalState(ctx context.Context) (*GlobalState, error) {
	body, err := c.get(ctx, routeGlobalState, "/global_state")
	if err != nil {
		return nil, err
	}

	var triple []json.RawMessage
	if err := json.Unmarshal(body, &triple); err != nil {
		return nil, fmt.Errorf("%w: global_state: %w", ErrInvalidResponse, err)
	}
	if len(triple) != 3 {
		return nil, fmt.Errorf("%w: global_state has %d elements, want 3", ErrInvalidResponse, len(triple))
	}
	var seqID uint64
	if err := json.Unmarshal(triple[1], &seqID); err != nil {
		return nil, fmt.Errorf("%w: global_state seq id: %w", ErrInvalidResponse, err)
	}
	return &GlobalState{StateHash: triple[0], SeqID: seqID, Extra: triple[2]}, nil
}

// SeqID returns the sequence id from /global_state.
func (c *Client) SeqID(ctx context.Context) (uint64, error) {
	gs, err := c.GlobalState(ctx)
	if err != nil {
		return 0, err
	}
	c.logger.Debug().Uint64("seq_id", gs.SeqID).Msg("fetched ledger sequence id")
	return gs.SeqID, nil
}

// OwnedUtxos fetches /owned_utxos/{pk} and keeps the ledger's ordering.
func (c *Client) OwnedUtxos(ctx context.Context, pk ledger.PublicKey) ([]ledger.OwnedUtxo, error) {
	body, err := c.get(ctx, routeOwnedUtxos, "/owned_utxos/"+pk.String())
	if err != nil {
		return nil, err
	}
	utxos, err := ledger.DecodeOwnedUtxos(body)
	if err != nil {
		return nil, fmt.Errorf("%w: owned_utxos: %w", ErrInvalidResponse, err)
	}
	c.logger.Debug().Int("count", len(utxos)).Msg("fetched owned utxos")
	return utxos, nil
}

// get issues a GET with retries and returns the response body.
func (c *Client) get(ctx context.Context, route, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := backoffFor(attempt-1, c.backoff, c.maxBackoff)
			c.metrics.retry(route)
			c.logger.Warn().Err(lastErr).Str("route", route).Int("attempt", attempt+1).
				Dur("backoff", wait).Msg("retrying ledger query")
			if err := sleepFunc(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, route, err)
			}
		}

		started := time.Now()
		body, err := c.getOnce(ctx, path)
		if err == nil {
			c.metrics.observe(route, "ok", started)
			return body, nil
		}
		c.metrics.observe(route, "error", started)
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return nil, lastErr
}

// getOnce performs one attempt. A failure caused by the per-attempt timeout
// does not unwrap to a context error; only the caller's ctx does that.
func (c *Client) getOnce(parent context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, attemptError(parent, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		se := &statusError{code: resp.StatusCode, body: string(respBody)}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, se)
		}
		return nil, fmt.Errorf("%w: HTTP %d: %w", ErrConnectionFailed, resp.StatusCode, se)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, attemptError(parent, fmt.Errorf("read body: %w", err))
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidResponse, maxBodySize)
	}
	return body, nil
}

func attemptError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}
