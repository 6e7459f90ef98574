// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the libxfr configuration file, a plain
// "key = value" text file kept in the data directory.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/libxfr-go/ledger"
	"github.com/bitfsorg/libxfr-go/network"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LIBXFR_"

// Config holds the settings shared by the CLI and the library boundary.
type Config struct {
	DataDir  string
	Endpoint string
	Network  string
	MinFee   uint64
	Timeout  time.Duration
	Retries  int
	Journal  string // journal database path; "off" disables it
	LogLevel string
	LogFile  string
	DNSSEC   bool
}

// DefaultDataDir returns ~/.libxfr, or .libxfr in the working directory if
// the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".libxfr"
	}
	return filepath.Join(home, ".libxfr")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Network:  "testnet",
		MinFee:   ledger.TxFeeMin,
		Timeout:  network.DefaultTimeout,
		Retries:  network.DefaultRetries,
		LogLevel: "info",
	}
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// JournalPath returns the pending-spend journal path, or "" if disabled.
func (c Config) JournalPath() string {
	switch c.Journal {
	case "off":
		return ""
	case "":
		return filepath.Join(c.DataDir, "journal.db")
	default:
		return c.Journal
	}
}

// LoadConfig reads path on top of DefaultConfig. Blank lines and lines
// starting with # are skipped; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// set applies one key. Unknown keys are ignored.
func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "endpoint":
		c.Endpoint = value
	case "network":
		c.Network = value
	case "minfee":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("minfee %q: %w", value, err)
		}
		c.MinFee = n
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("timeout %q: %w", value, err)
		}
		c.Timeout = d
	case "retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retries %q: %w", value, err)
		}
		c.Retries = n
	case "journal":
		c.Journal = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "dnssec":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("dnssec %q: %w", value, err)
		}
		c.DNSSEC = b
	}
	return nil
}

// ApplyEnv overrides cfg with LIBXFR_<KEY> entries of env, e.g.
// LIBXFR_NETWORK=qa.
func ApplyEnv(cfg Config, env map[string]string) (Config, error) {
	for _, key := range []string{"datadir", "endpoint", "network", "minfee", "timeout", "retries", "journal", "loglevel", "logfile", "dnssec"} {
		v, ok := env[EnvPrefix+strings.ToUpper(key)]
		if !ok || v == "" {
			continue
		}
		if err := cfg.set(key, v); err != nil {
			return cfg, fmt.Errorf("config: %s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
	}
	return cfg, nil
}

// Environ returns the LIBXFR_ variables of the process environment.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env
}

// Env renders the connection settings of c as LIBXFR_ variables, the form
// the library boundary reads them in.
func (c Config) Env() map[string]string {
	env := map[string]string{
		EnvPrefix + "NETWORK": c.Network,
		EnvPrefix + "DNSSEC":  strconv.FormatBool(c.DNSSEC),
		EnvPrefix + "RETRIES": strconv.Itoa(c.Retries),
	}
	if c.Endpoint != "" {
		env[EnvPrefix+"ENDPOINT"] = c.Endpoint
	}
	if c.Timeout > 0 {
		env[EnvPrefix+"TIMEOUT"] = c.Timeout.String()
	}
	return env
}

// ClientConfig resolves the ledger client settings, filling the endpoint
// from the network preset when none is configured.
func (c Config) ClientConfig() (*network.ClientConfig, error) {
	return network.ResolveConfig(&network.ClientConfig{
		Endpoint: c.Endpoint,
		Timeout:  c.Timeout,
		Retries:  c.Retries,
	}, nil, c.Network)
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# libxfr Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "endpoint = %s\n", cfg.Endpoint)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "minfee = %d\n", cfg.MinFee)
	fmt.Fprintf(&b, "timeout = %s\n", cfg.Timeout)
	fmt.Fprintf(&b, "retries = %d\n", cfg.Retries)
	fmt.Fprintf(&b, "journal = %s\n", cfg.Journal)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "dnssec = %t\n", cfg.DNSSEC)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
