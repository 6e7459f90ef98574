package boundary

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libxfr-go/ledger"
	"github.com/bitfsorg/libxfr-go/memo"
	"github.com/bitfsorg/libxfr-go/network"
	"github.com/bitfsorg/libxfr-go/tx"
	"github.com/bitfsorg/libxfr-go/wallet"
)

func secretHex(b byte) []byte {
	secret := make([]byte, wallet.SecretKeyLen)
	secret[31] = b
	return []byte(hex.EncodeToString(secret))
}

func keyFor(t *testing.T, b byte) *wallet.KeyPair {
	t.Helper()
	secret := make([]byte, wallet.SecretKeyLen)
	secret[31] = b
	kp, err := wallet.KeypairFromSecret(secret)
	require.NoError(t, err)
	return kp
}

func encodedKey(t *testing.T, b byte) []byte {
	return []byte(wallet.EncodePublicKey(keyFor(t, b).PublicKey()))
}

// fakeLedger serves global_state and owned_utxos for one owner.
type fakeLedger struct {
	seqID  uint64
	owner  ledger.PublicKey
	values []uint64
	status int
	hits   atomic.Int32
}

func (f *fakeLedger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	switch {
	case r.URL.Path == "/global_state":
		fmt.Fprintf(w, `["c3RhdGU=",%d,null]`, f.seqID)
	case r.URL.Path == "/owned_utxos/"+f.owner.String():
		utxos := make([]ledger.OwnedUtxo, len(f.values))
		for i, v := range f.values {
			sid := ledger.TxoSID(uint64(i) + 1)
			utxos[i] = ledger.OwnedUtxo{SID: sid, Output: ledger.TxOutput{
				ID: &sid,
				Record: ledger.BlindAssetRecord{
					Amount:    ledger.XfrAmount{Value: v},
					AssetType: ledger.XfrAssetType{Code: ledger.BaseAssetType},
					PublicKey: f.owner,
				},
			}}
		}
		body, err := ledger.EncodeOwnedUtxos(utxos)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeLedger(t *testing.T, seqID uint64, values ...uint64) (*fakeLedger, *httptest.Server) {
	t.Helper()
	f := &fakeLedger{seqID: seqID, owner: keyFor(t, 0x2a).PublicKey(), values: values}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func testBuilder() *Builder {
	return New(
		WithEnv(map[string]string{}),
		WithClientOptions(network.WithRetries(0)),
	)
}

type wireOutput struct {
	Amount    uint64
	PublicKey string
	Memo      *string
}

// decodeOutputs returns the seq id and the outputs of the single operation in
// payload.
func decodeOutputs(t *testing.T, payload string) (uint64, []wireOutput) {
	t.Helper()
	var txn struct {
		Body struct {
			NoReplayToken [2]uint64 `json:"no_replay_token"`
			Operations    []struct {
				TransferAsset struct {
					Body struct {
						Outputs []struct {
							Record struct {
								Amount struct {
									NonConfidential string
								} `json:"amount"`
								PublicKey string `json:"public_key"`
							} `json:"record"`
							Memo *string `json:"memo"`
						} `json:"outputs"`
					} `json:"body"`
				}
			} `json:"operations"`
		} `json:"body"`
		PubkeySignMap map[string]string `json:"pubkey_sign_map"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &txn))
	require.Len(t, txn.Body.Operations, 1)
	require.Len(t, txn.PubkeySignMap, 1)

	var outs []wireOutput
	for _, o := range txn.Body.Operations[0].TransferAsset.Body.Outputs {
		var amt uint64
		_, err := fmt.Sscan(o.Record.Amount.NonConfidential, &amt)
		require.NoError(t, err)
		outs = append(outs, wireOutput{Amount: amt, PublicKey: o.Record.PublicKey, Memo: o.Memo})
	}
	return txn.Body.NoReplayToken[1], outs
}

func TestBuildSwap(t *testing.T) {
	_, srv := newFakeLedger(t, 777, 300_000, 300_000, 900_000)
	b := testBuilder()

	payload, err := b.BuildSwap(context.Background(), SwapRequest{
		KeyMaterial:   secretHex(0x2a),
		PriceReceiver: encodedKey(t, 3),
		Recipient:     encodedKey(t, 2),
		TokenAmount:   []byte("1000"),
		Endpoint:      []byte(srv.URL),
		Ticker:        []byte("ordi"),
		Price:         []byte("0.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, CodeOK, CodeOf(err))

	seqID, outs := decodeOutputs(t, payload)
	assert.Equal(t, uint64(777), seqID)
	require.Len(t, outs, 4)

	// fee, memo carrier, change, price
	assert.Equal(t, ledger.TxFeeMin, outs[0].Amount)
	assert.Equal(t, ledger.BurnPublicKey.String(), outs[0].PublicKey)
	assert.Equal(t, uint64(0), outs[1].Amount)
	assert.Equal(t, string(encodedKey(t, 2)), outs[1].PublicKey)
	require.NotNil(t, outs[1].Memo)
	m, err := memo.Decode(*outs[1].Memo)
	require.NoError(t, err)
	assert.Equal(t, "ordi", m.Tick)
	assert.Equal(t, "1000", m.Amt)
	assert.Equal(t, uint64(600_000-10_000-500_000), outs[2].Amount)
	assert.Equal(t, uint64(500_000), outs[3].Amount)
	assert.Equal(t, string(encodedKey(t, 3)), outs[3].PublicKey)
}

func TestBuildTransfer(t *testing.T) {
	_, srv := newFakeLedger(t, 9, 40_000, 40_000)
	b := testBuilder()

	payload, err := b.BuildTransfer(context.Background(), TransferRequest{
		KeyMaterial: secretHex(0x2a),
		Recipient:   encodedKey(t, 2),
		TokenAmount: []byte("5"),
		Endpoint:    []byte(srv.URL + "/"),
		Ticker:      []byte("sats"),
		Amount:      []byte("0.05"),
	})
	require.NoError(t, err)

	_, outs := decodeOutputs(t, payload)
	require.Len(t, outs, 3)
	assert.Equal(t, ledger.TxFeeMin, outs[0].Amount)
	assert.Equal(t, uint64(50_000), outs[1].Amount)
	assert.NotNil(t, outs[1].Memo)
	assert.Equal(t, uint64(80_000-10_000-50_000), outs[2].Amount)
}

func TestBuildTransfer_Sweep(t *testing.T) {
	_, srv := newFakeLedger(t, 9, 40_000, 40_000, 5)
	b := testBuilder()

	payload, err := b.BuildTransfer(context.Background(), TransferRequest{
		KeyMaterial: secretHex(0x2a),
		Recipient:   encodedKey(t, 2),
		Endpoint:    []byte(srv.URL),
		Amount:      []byte("ALL"),
	})
	require.NoError(t, err)

	_, outs := decodeOutputs(t, payload)
	require.Len(t, outs, 3)
	assert.Equal(t, uint64(80_005-10_000), outs[1].Amount)
	assert.Nil(t, outs[1].Memo)
	assert.Equal(t, uint64(0), outs[2].Amount)
}

func TestBuildSwap_InsufficientFunds(t *testing.T) {
	_, srv := newFakeLedger(t, 1, 100_000)
	b := testBuilder()

	_, err := b.BuildSwap(context.Background(), SwapRequest{
		KeyMaterial:   secretHex(0x2a),
		PriceReceiver: encodedKey(t, 3),
		Recipient:     encodedKey(t, 2),
		TokenAmount:   []byte("1"),
		Endpoint:      []byte(srv.URL),
		Ticker:        []byte("ordi"),
		Price:         []byte("1"),
	})
	require.Error(t, err)
	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))

	var short *tx.InsufficientFundsError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, uint64(1_010_000-100_000), short.Shortfall)
}

func TestBuild_InputErrors(t *testing.T) {
	_, srv := newFakeLedger(t, 1, 100_000)
	good := SwapRequest{
		KeyMaterial:   secretHex(0x2a),
		PriceReceiver: encodedKey(t, 3),
		Recipient:     encodedKey(t, 2),
		TokenAmount:   []byte("1"),
		Endpoint:      []byte(srv.URL),
		Ticker:        []byte("ordi"),
		Price:         []byte("0.01"),
	}

	tests := []struct {
		name   string
		modify func(*SwapRequest)
		want   Code
	}{
		{"empty key", func(r *SwapRequest) { r.KeyMaterial = nil }, CodeKeyDecode},
		{"garbage key", func(r *SwapRequest) { r.KeyMaterial = []byte("!!!") }, CodeKeyDecode},
		{"oversized key", func(r *SwapRequest) { r.KeyMaterial = make([]byte, MaxFieldLen+1) }, CodeKeyDecode},
		{"bad recipient", func(r *SwapRequest) { r.Recipient = []byte("AAAA") }, CodeKeyDecode},
		{"bad price receiver", func(r *SwapRequest) { r.PriceReceiver = []byte("***") }, CodeKeyDecode},
		{"invalid utf8 ticker", func(r *SwapRequest) { r.Ticker = []byte{0xff, 0xfe} }, CodeInvalidArgument},
		{"bad ticker", func(r *SwapRequest) { r.Ticker = []byte(`a"b`) }, CodeInvalidArgument},
		{"float price", func(r *SwapRequest) { r.Price = []byte("1e3") }, CodeInvalidArgument},
		{"too many decimals", func(r *SwapRequest) { r.Price = []byte("0.0000001") }, CodeInvalidArgument},
		{"bad endpoint", func(r *SwapRequest) { r.Endpoint = []byte("ftp://ledger") }, CodeInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := good
			tc.modify(&req)
			payload, err := testBuilder().BuildSwap(context.Background(), req)
			require.Error(t, err)
			assert.Empty(t, payload)
			assert.Equal(t, tc.want, CodeOf(err), "err: %v", err)
		})
	}
}

func TestBuild_RemoteFailure(t *testing.T) {
	f, srv := newFakeLedger(t, 1, 100_000)
	f.status = http.StatusBadGateway

	_, err := testBuilder().BuildTransfer(context.Background(), TransferRequest{
		KeyMaterial: secretHex(0x2a),
		Recipient:   encodedKey(t, 2),
		Endpoint:    []byte(srv.URL),
		Amount:      []byte("0.01"),
	})
	require.Error(t, err)
	assert.Equal(t, CodeRemoteFetch, CodeOf(err))
}

func TestBuild_Canceled(t *testing.T) {
	_, srv := newFakeLedger(t, 1, 100_000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testBuilder().BuildTransfer(ctx, TransferRequest{
		KeyMaterial: secretHex(0x2a),
		Recipient:   encodedKey(t, 2),
		Endpoint:    []byte(srv.URL),
		Amount:      []byte("0.01"),
	})
	require.Error(t, err)
	assert.Equal(t, CodeCanceled, CodeOf(err))
}

func TestSeqID_LedgerTimeoutIsRemoteFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	b := New(
		WithEnv(map[string]string{}),
		WithClientOptions(network.WithRetries(1), network.WithTimeout(30*time.Millisecond),
			network.WithBackoff(time.Millisecond, time.Millisecond)),
	)
	_, err := b.SeqID(context.Background(), []byte(srv.URL))
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, CodeRemoteFetch, CodeOf(err))
	assert.Equal(t, "remote_fetch", tx.Kind(err))
}

func TestSeqID(t *testing.T) {
	f, srv := newFakeLedger(t, 4242)

	seqID, err := testBuilder().SeqID(context.Background(), []byte(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), seqID)
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestSeqID_EndpointFromEnv(t *testing.T) {
	_, srv := newFakeLedger(t, 5)
	b := New(
		WithEnv(map[string]string{"LIBXFR_ENDPOINT": srv.URL, "LIBXFR_NETWORK": "mainnet"}),
		WithClientOptions(network.WithRetries(0)),
	)

	seqID, err := b.SeqID(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), seqID)
}

func TestSeqID_MainnetNeedsEndpoint(t *testing.T) {
	b := New(WithEnv(map[string]string{}), WithNetwork("mainnet"))
	_, err := b.SeqID(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

type srvResolver struct {
	port uint16
	err  error
}

func (r srvResolver) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	if r.err != nil {
		return "", nil, r.err
	}
	return "", []*net.SRV{{Target: "127.0.0.1.", Port: r.port, Priority: 1, Weight: 1}}, nil
}

func TestSeqID_SRVEndpoint(t *testing.T) {
	_, srv := newFakeLedger(t, 31)
	_, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	var port uint16
	_, err = fmt.Sscan(portStr, &port)
	require.NoError(t, err)

	b := New(WithEnv(map[string]string{}), WithResolver(srvResolver{port: port}),
		WithClientOptions(network.WithRetries(0), network.WithTimeout(5*time.Second)))
	seqID, err := b.SeqID(context.Background(), []byte("srv://ledger.example"))
	require.NoError(t, err)
	assert.Equal(t, uint64(31), seqID)

	b = New(WithEnv(map[string]string{}), WithResolver(srvResolver{err: errors.New("nxdomain")}))
	_, err = b.SeqID(context.Background(), []byte("srv://ledger.example"))
	assert.Equal(t, CodeRemoteFetch, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{nil, CodeOK},
		{fmt.Errorf("%w: x", tx.ErrInvalidParams), CodeInvalidArgument},
		{tx.ErrKeyDecode, CodeKeyDecode},
		{fmt.Errorf("%w: %w", tx.ErrRemoteFetch, context.Canceled), CodeCanceled},
		{fmt.Errorf("%w: %w", tx.ErrRemoteFetch, network.ErrNotFound), CodeRemoteFetch},
		{&tx.InsufficientFundsError{Need: 2, Have: 1, Shortfall: 1}, CodeInsufficientFunds},
		{tx.ErrLedgerBuilder, CodeLedgerBuilder},
		{tx.ErrSerialization, CodeSerialization},
		{errors.New("boom"), CodeInternal},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CodeOf(tc.err), "%v", tc.err)
	}
	assert.Equal(t, "insufficient funds", CodeInsufficientFunds.String())
	assert.Equal(t, "unknown", Code(42).String())
}
