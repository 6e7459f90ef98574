// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bitfsorg/libxfr-go/ledger"
	"github.com/bitfsorg/libxfr-go/network"
)

// maxRetries bounds the configured retry count.
const maxRetries = 10

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validNetworks lists the accepted network names.
var validNetworks = map[string]bool{
	"mainnet": true,
	"testnet": true,
	"qa":      true,
	"local":   true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validNetworks[cfg.Network] {
		return ErrInvalidNetwork
	}

	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	if cfg.MinFee < ledger.TxFeeMin {
		return fmt.Errorf("%w: %d < %d", ErrFeeTooLow, cfg.MinFee, ledger.TxFeeMin)
	}

	if cfg.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if cfg.Retries < 0 || cfg.Retries > maxRetries {
		return ErrInvalidRetries
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// validateEndpoint accepts an empty endpoint (network preset), http(s) URLs
// with a host, and srv://domain.
func validateEndpoint(ep string) error {
	if ep == "" {
		return nil
	}
	if strings.HasPrefix(ep, network.SchemeSRV) {
		if strings.Trim(strings.TrimPrefix(ep, network.SchemeSRV), "/") == "" {
			return fmt.Errorf("missing domain in %q", ep)
		}
		return nil
	}
	u, err := url.Parse(ep)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("unsupported endpoint %q", ep)
	}
	return nil
}
