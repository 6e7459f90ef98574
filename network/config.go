package network

import (
	"fmt"
	"strconv"
	"time"
)

// Default client parameters.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultRetries    = 3
	DefaultBackoff    = 250 * time.Millisecond
	DefaultMaxBackoff = 4 * time.Second

	// RetriesUnset marks ClientConfig.Retries as not given, so a lower
	// priority source supplies it. Zero is a real setting.
	RetriesUnset = -1
)

// ClientConfig holds the connection parameters for a ledger query server.
type ClientConfig struct {
	Endpoint string        `json:"endpoint"`
	Network  string        `json:"network"`
	Timeout  time.Duration `json:"timeout"`
	Retries  int           `json:"retries"`
}

// NetworkPresets contains default endpoints for known networks.
// Mainnet is intentionally omitted to require explicit configuration.
var NetworkPresets = map[string]ClientConfig{
	"testnet": {Endpoint: "https://prod-testnet.prod.findora.org:8668"},
	"qa":      {Endpoint: "https://dev-qa01.dev.findora.org:8668"},
	"local":   {Endpoint: "http://localhost:8668"},
}

// ResolveConfig merges client configuration from three sources with decreasing priority:
//  1. CLI flags (highest priority)
//  2. Environment variables (LIBXFR_ENDPOINT, LIBXFR_TIMEOUT, LIBXFR_RETRIES)
//  3. Network presets (lowest priority)
//
// Timeout and Retries fall back to DefaultTimeout and DefaultRetries. A flag
// Retries of RetriesUnset (or any negative value) is ignored.
func ResolveConfig(flags *ClientConfig, env map[string]string, network string) (*ClientConfig, error) {
	result := ClientConfig{Network: network, Timeout: DefaultTimeout, Retries: DefaultRetries}

	if preset, ok := NetworkPresets[network]; ok {
		result.Endpoint = preset.Endpoint
	}

	if env != nil {
		if v, ok := env["LIBXFR_ENDPOINT"]; ok && v != "" {
			result.Endpoint = v
		}
		if v, ok := env["LIBXFR_TIMEOUT"]; ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("network: invalid LIBXFR_TIMEOUT %q", v)
			}
			result.Timeout = d
		}
		if v, ok := env["LIBXFR_RETRIES"]; ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("network: invalid LIBXFR_RETRIES %q", v)
			}
			result.Retries = n
		}
	}

	if flags != nil {
		if flags.Endpoint != "" {
			result.Endpoint = flags.Endpoint
		}
		if flags.Timeout > 0 {
			result.Timeout = flags.Timeout
		}
		if flags.Retries >= 0 {
			result.Retries = flags.Retries
		}
	}

	if result.Endpoint == "" {
		return nil, fmt.Errorf("network: %s requires an explicit endpoint (set --endpoint, LIBXFR_ENDPOINT, or config file)", network)
	}

	return &result, nil
}
