package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/libxfr-go/config"
	"github.com/bitfsorg/libxfr-go/journal"
	"github.com/bitfsorg/libxfr-go/network"
	"github.com/bitfsorg/libxfr-go/tx"
	"github.com/bitfsorg/libxfr-go/wallet"
)

// Arguments holds the global flags and the state derived from them.
type Arguments struct {
	DataDir     string
	Endpoint    string
	Network     string
	Timeout     time.Duration
	Retries     int
	LogLevel    string
	MetricsFile string

	// KeyFile holds raw key material (mnemonic or 32-byte secret). Keystore
	// is an encrypted file written by "key new --out".
	KeyFile  string
	Keystore string

	cfg      config.Config
	logger   zerolog.Logger
	closeLog func() error
	registry *prometheus.Registry
	resolver network.DNSResolver
	env      func() map[string]string
}

// NewArguments returns arguments reading the process environment.
func NewArguments() *Arguments {
	return &Arguments{env: config.Environ}
}

// MakeCmd builds the command tree.
func (a *Arguments) MakeCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "xfrctl",
		Short:         "Build signed transfer transactions for a UTXO ledger.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.finish()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.DataDir, "datadir", config.DefaultDataDir(), "Data directory holding the config file and journal")
	f.StringVar(&a.Endpoint, "endpoint", "", "Ledger query server (http(s)://host:port or srv://domain)")
	f.StringVar(&a.Network, "network", "", "Network preset: mainnet, testnet, qa or local")
	f.DurationVar(&a.Timeout, "timeout", 0, "Per-request timeout")
	f.IntVar(&a.Retries, "retries", -1, "Retries for transient ledger failures")
	f.StringVar(&a.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.StringVar(&a.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	f.StringVar(&a.KeyFile, "key-file", "", "File holding the sender mnemonic or secret key")
	f.StringVar(&a.Keystore, "keystore", "", "Encrypted keystore holding the sender key (password from LIBXFR_PASSWORD)")

	root.AddCommand(
		a.seqIDCmd(),
		a.utxosCmd(),
		a.transferCmd(),
		a.swapCmd(),
		a.journalCmd(),
		a.configCmd(),
		a.keyCmd(),
	)
	return root
}

// load merges config file, environment and flags, in increasing priority.
func (a *Arguments) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(config.ConfigPath(a.DataDir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return err
	}
	cfg.DataDir = a.DataDir
	if cfg, err = config.ApplyEnv(cfg, a.env()); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = a.Endpoint
	}
	if flags.Changed("network") {
		cfg.Network = a.Network
	}
	if flags.Changed("timeout") {
		cfg.Timeout = a.Timeout
	}
	if flags.Changed("retries") {
		cfg.Retries = a.Retries
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.LogLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logger, closeLog, err := cfg.Logger(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen})
	if err != nil {
		return err
	}
	a.logger, a.closeLog = logger, closeLog
	a.registry = prometheus.NewRegistry()
	if a.resolver == nil {
		a.resolver = network.DefaultDNSResolver
		if cfg.DNSSEC {
			a.resolver = network.NewDNSSECResolver("")
		}
	}
	return nil
}

func (a *Arguments) finish() error {
	var err error
	if a.MetricsFile != "" && a.registry != nil {
		err = prometheus.WriteToTextfile(a.MetricsFile, a.registry)
	}
	if a.closeLog != nil {
		err = errors.Join(err, a.closeLog())
	}
	return err
}

// client returns a ledger client for the resolved endpoint.
func (a *Arguments) client() (*network.Client, error) {
	cc, err := a.cfg.ClientConfig()
	if err != nil {
		return nil, err
	}
	if cc.Endpoint, err = network.ResolveEndpoint(cc.Endpoint, a.resolver); err != nil {
		return nil, err
	}
	a.logger.Debug().Str("endpoint", cc.Endpoint).Msg("using ledger endpoint")
	return network.NewClientFromConfig(cc,
		network.WithLogger(a.logger),
		network.WithMetrics(network.NewMetrics(a.registry)),
	)
}

// pipeline returns a pipeline over client. The journal, when enabled, must be
// closed by the caller.
func (a *Arguments) pipeline(client tx.LedgerClient) (*tx.Pipeline, func() error, error) {
	opts := []tx.Option{
		tx.WithFee(a.cfg.MinFee),
		tx.WithLogger(a.logger),
		tx.WithMetrics(tx.NewMetrics(a.registry)),
	}
	closeFn := func() error { return nil }
	if path := a.cfg.JournalPath(); path != "" {
		j, store, err := a.openJournal(path)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, tx.WithJournal(j))
		closeFn = store.Close
	}
	return tx.NewPipeline(client, opts...), closeFn, nil
}

func (a *Arguments) openJournal(path string) (*journal.Journal, *journal.BoltStore, error) {
	store, err := journal.OpenBoltStore(path)
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.New(store, journal.WithLogger(a.logger))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return j, store, nil
}

// sender loads the signing key from --key-file or --keystore.
func (a *Arguments) sender() (*wallet.KeyPair, error) {
	var (
		material []byte
		err      error
	)
	switch {
	case a.KeyFile != "" && a.Keystore != "":
		return nil, fmt.Errorf("%w: use one of --key-file and --keystore", tx.ErrInvalidParams)
	case a.KeyFile != "":
		material, err = os.ReadFile(a.KeyFile)
	case a.Keystore != "":
		material, err = wallet.LoadKeystore(a.Keystore, a.env()[config.EnvPrefix+"PASSWORD"])
	default:
		return nil, fmt.Errorf("%w: no sender key (--key-file or --keystore)", tx.ErrInvalidParams)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tx.ErrKeyDecode, err)
	}
	kp, err := wallet.ParseKeyMaterial(material)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tx.ErrKeyDecode, err)
	}
	return kp, nil
}
