// Command libxfr is built with -buildmode=c-shared and exposes the transfer
// builder to C callers. Every entry point reports failure through an error
// code out-parameter and a NULL or zero result; none of them abort the host
// process. Strings returned by the library are released with xfr_free_string.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libxfr-go/boundary"
	"github.com/bitfsorg/libxfr-go/config"
	"github.com/bitfsorg/libxfr-go/journal"
	"github.com/bitfsorg/libxfr-go/tx"
)

var (
	setupOnce sync.Once
	builder   *boundary.Builder
	setupErr  error
)

// instance builds the shared Builder from the config file in the data
// directory (if any) and LIBXFR_ variables.
func instance() (*boundary.Builder, error) {
	setupOnce.Do(func() {
		builder, setupErr = setup()
	})
	return builder, setupErr
}

func setup() (*boundary.Builder, error) {
	env := config.Environ()
	dataDir := env[config.EnvPrefix+"DATADIR"]
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	cfg, err := config.LoadConfig(config.ConfigPath(dataDir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, err
	}
	cfg.DataDir = dataDir
	if cfg, err = config.ApplyEnv(cfg, env); err != nil {
		return nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger, _, err := cfg.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("component", "libxfr").Logger()

	pipeline := []tx.Option{tx.WithFee(cfg.MinFee)}
	// Library callers only get a journal when LIBXFR_JOURNAL is set.
	if path := cfg.JournalPath(); path != "" && env[config.EnvPrefix+"JOURNAL"] != "" {
		j, err := openJournal(path, logger)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, tx.WithJournal(j))
	}

	return boundary.New(
		boundary.WithEnv(cfg.Env()),
		boundary.WithNetwork(cfg.Network),
		boundary.WithPipelineOptions(pipeline...),
		boundary.WithLogger(logger),
	), nil
}

func openJournal(path string, logger zerolog.Logger) (*journal.Journal, error) {
	store, err := journal.OpenBoltStore(path)
	if err != nil {
		return nil, err
	}
	return journal.New(store, journal.WithLogger(logger))
}

// input copies a caller buffer. A NULL pointer is only valid with length 0.
func input(p *C.uint8_t, n C.uint32_t) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if p == nil {
		return nil, fmt.Errorf("%w: NULL buffer with length %d", tx.ErrInvalidParams, n)
	}
	if n > boundary.MaxFieldLen {
		return nil, fmt.Errorf("%w: buffer length %d exceeds %d", tx.ErrInvalidParams, n, boundary.MaxFieldLen)
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n)), nil
}

func inputs(ptrs []*C.uint8_t, lens []C.uint32_t) ([][]byte, error) {
	out := make([][]byte, len(ptrs))
	for i := range ptrs {
		b, err := input(ptrs[i], lens[i])
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func setCode(code *C.int32_t, err error) {
	if code != nil {
		*code = C.int32_t(boundary.CodeOf(err))
	}
}

// result converts a build outcome into a C string, or NULL on failure.
func result(payload string, err error, code *C.int32_t) *C.char {
	setCode(code, err)
	if err != nil {
		return nil
	}
	return C.CString(payload)
}

// get_tx_str builds a swap transfer: fee to the burn key, a zero-value
// output carrying the BRC-20 memo to `to`, change to the sender and `price`
// (decimal, in whole base-asset units) to the price receiver.
//
//export get_tx_str
func get_tx_str(
	fromKey *C.uint8_t, fromKeyLen C.uint32_t,
	priceReceiver *C.uint8_t, priceReceiverLen C.uint32_t,
	to *C.uint8_t, toLen C.uint32_t,
	tokenAmount *C.uint8_t, tokenAmountLen C.uint32_t,
	url *C.uint8_t, urlLen C.uint32_t,
	tick *C.uint8_t, tickLen C.uint32_t,
	price *C.uint8_t, priceLen C.uint32_t,
	code *C.int32_t,
) *C.char {
	b, err := instance()
	if err != nil {
		return result("", fmt.Errorf("%w: %w", tx.ErrInvalidParams, err), code)
	}
	bufs, err := inputs(
		[]*C.uint8_t{fromKey, priceReceiver, to, tokenAmount, url, tick, price},
		[]C.uint32_t{fromKeyLen, priceReceiverLen, toLen, tokenAmountLen, urlLen, tickLen, priceLen},
	)
	if err != nil {
		return result("", err, code)
	}
	payload, err := b.BuildSwap(context.Background(), boundary.SwapRequest{
		KeyMaterial:   bufs[0],
		PriceReceiver: bufs[1],
		Recipient:     bufs[2],
		TokenAmount:   bufs[3],
		Endpoint:      bufs[4],
		Ticker:        bufs[5],
		Price:         bufs[6],
	})
	return result(payload, err, code)
}

// get_transfer_tx_str builds a direct transfer of `amount` (decimal, in
// whole base-asset units, or "all") to `to` with the BRC-20 memo attached.
//
//export get_transfer_tx_str
func get_transfer_tx_str(
	fromKey *C.uint8_t, fromKeyLen C.uint32_t,
	to *C.uint8_t, toLen C.uint32_t,
	tokenAmount *C.uint8_t, tokenAmountLen C.uint32_t,
	url *C.uint8_t, urlLen C.uint32_t,
	tick *C.uint8_t, tickLen C.uint32_t,
	amount *C.uint8_t, amountLen C.uint32_t,
	code *C.int32_t,
) *C.char {
	b, err := instance()
	if err != nil {
		return result("", fmt.Errorf("%w: %w", tx.ErrInvalidParams, err), code)
	}
	bufs, err := inputs(
		[]*C.uint8_t{fromKey, to, tokenAmount, url, tick, amount},
		[]C.uint32_t{fromKeyLen, toLen, tokenAmountLen, urlLen, tickLen, amountLen},
	)
	if err != nil {
		return result("", err, code)
	}
	payload, err := b.BuildTransfer(context.Background(), boundary.TransferRequest{
		KeyMaterial: bufs[0],
		Recipient:   bufs[1],
		TokenAmount: bufs[2],
		Endpoint:    bufs[3],
		Ticker:      bufs[4],
		Amount:      bufs[5],
	})
	return result(payload, err, code)
}

// get_seq_id returns the ledger's current sequence id, or 0 with a non-zero
// code on failure.
//
//export get_seq_id
func get_seq_id(url *C.uint8_t, urlLen C.uint32_t, code *C.int32_t) C.uint64_t {
	b, err := instance()
	if err != nil {
		setCode(code, fmt.Errorf("%w: %w", tx.ErrInvalidParams, err))
		return 0
	}
	ep, err := input(url, urlLen)
	if err != nil {
		setCode(code, err)
		return 0
	}
	seqID, err := b.SeqID(context.Background(), ep)
	setCode(code, err)
	if err != nil {
		return 0
	}
	return C.uint64_t(seqID)
}

// xfr_error_name returns a static description of code, "unknown" for codes
// it does not define. It must not be freed.
//
//export xfr_error_name
func xfr_error_name(code C.int32_t) *C.char {
	return errorName(int32(code))
}

func errorName(code int32) *C.char {
	if s, ok := errorNames[boundary.Code(code)]; ok {
		return s
	}
	return unknownErrorName
}

var unknownErrorName = C.CString(boundary.Code(-1).String())

var errorNames = func() map[boundary.Code]*C.char {
	m := make(map[boundary.Code]*C.char)
	for _, c := range []boundary.Code{
		boundary.CodeOK, boundary.CodeInvalidArgument, boundary.CodeKeyDecode,
		boundary.CodeRemoteFetch, boundary.CodeInsufficientFunds, boundary.CodeLedgerBuilder,
		boundary.CodeSerialization, boundary.CodeCanceled, boundary.CodeInternal,
	} {
		m[c] = C.CString(c.String())
	}
	return m
}()

// xfr_free_string releases a string returned by get_tx_str or
// get_transfer_tx_str.
//
//export xfr_free_string
func xfr_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func main() {}
