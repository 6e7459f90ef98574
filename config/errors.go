// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", \"qa\", or \"local\")")

	// ErrInvalidEndpoint indicates the endpoint is not an http(s):// or srv:// URL.
	ErrInvalidEndpoint = errors.New("config: invalid endpoint")

	// ErrFeeTooLow indicates minfee is below the ledger minimum.
	ErrFeeTooLow = errors.New("config: minfee below ledger minimum")

	// ErrInvalidTimeout indicates the timeout is not positive.
	ErrInvalidTimeout = errors.New("config: timeout must be positive")

	// ErrInvalidRetries indicates the retry count is out of range.
	ErrInvalidRetries = errors.New("config: retries must be between 0 and 10")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
