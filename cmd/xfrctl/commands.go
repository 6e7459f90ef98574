package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libxfr-go/config"
	"github.com/bitfsorg/libxfr-go/journal"
	"github.com/bitfsorg/libxfr-go/ledger"
	"github.com/bitfsorg/libxfr-go/tx"
	"github.com/bitfsorg/libxfr-go/wallet"
)

func (a *Arguments) seqIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seqid",
		Short: "Print the ledger's current sequence id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			seqID, err := client.SeqID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), seqID)
			return nil
		},
	}
}

func (a *Arguments) utxosCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "utxos",
		Short: "List the outputs owned by a key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pk ledger.PublicKey
			if owner != "" {
				var err error
				if pk, err = wallet.DecodePublicKey(owner); err != nil {
					return err
				}
			} else {
				kp, err := a.sender()
				if err != nil {
					return err
				}
				pk = kp.PublicKey()
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			utxos, err := client.OwnedUtxos(cmd.Context(), pk)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range utxos {
				rec := u.Output.Record
				switch {
				case rec.IsConfidential():
					fmt.Fprintf(out, "%d\tconfidential\n", u.SID)
				case rec.AssetType.Code == ledger.BaseAssetType:
					fmt.Fprintf(out, "%d\t%s\n", u.SID, tx.FormatAmount(rec.Amount.Value, ledger.BaseAssetDecimals))
				default:
					fmt.Fprintf(out, "%d\t%d\t%s\n", u.SID, rec.Amount.Value, rec.AssetType.Code)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner public key (defaults to the sender key)")
	return cmd
}

// memoFlags are the BRC-20 memo flags shared by transfer and swap.
type memoFlags struct {
	to          string
	ticker      string
	tokenAmount string
}

func (m *memoFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.to, "to", "", "Recipient public key")
	cmd.Flags().StringVar(&m.ticker, "tick", "", "BRC-20 ticker for the transfer memo")
	cmd.Flags().StringVar(&m.tokenAmount, "token-amount", "", "BRC-20 token amount for the transfer memo")
	_ = cmd.MarkFlagRequired("to")
}

func (a *Arguments) transferCmd() *cobra.Command {
	var (
		m      memoFlags
		amount string
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Build a direct transfer and print the signed transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			variant := tx.Direct{Sweep: strings.EqualFold(amount, "all")}
			if !variant.Sweep {
				v, err := tx.ParseAmount(amount, ledger.BaseAssetDecimals)
				if err != nil {
					return err
				}
				variant.Amount = v
			}
			return a.build(cmd, m, variant)
		},
	}
	m.register(cmd)
	cmd.Flags().StringVar(&amount, "amount", "", `Amount in whole base-asset units, or "all"`)
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *Arguments) swapCmd() *cobra.Command {
	var (
		m        memoFlags
		receiver string
		price    string
	)
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Build a swap transfer paying a price to a second key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := wallet.DecodePublicKey(receiver)
			if err != nil {
				return fmt.Errorf("%w: price receiver: %w", tx.ErrKeyDecode, err)
			}
			v, err := tx.ParseAmount(price, ledger.BaseAssetDecimals)
			if err != nil {
				return err
			}
			return a.build(cmd, m, tx.Swap{Receiver: pk, Price: v})
		},
	}
	m.register(cmd)
	cmd.Flags().StringVar(&receiver, "price-receiver", "", "Public key receiving the price")
	cmd.Flags().StringVar(&price, "price", "", "Price in whole base-asset units")
	_ = cmd.MarkFlagRequired("price-receiver")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func (a *Arguments) build(cmd *cobra.Command, m memoFlags, variant tx.Variant) (err error) {
	recipient, err := wallet.DecodePublicKey(m.to)
	if err != nil {
		return fmt.Errorf("%w: recipient: %w", tx.ErrKeyDecode, err)
	}
	sender, err := a.sender()
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	p, closeJournal, err := a.pipeline(client)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeJournal()) }()

	res, err := p.Build(cmd.Context(), tx.Request{
		Sender:      sender,
		Recipient:   recipient,
		Ticker:      m.ticker,
		TokenAmount: m.tokenAmount,
		Variant:     variant,
	})
	if err != nil {
		a.logger.Error().Str("kind", tx.Kind(err)).Err(err).Msg("build failed")
		return err
	}
	a.logger.Info().Uint64("seq_id", res.SeqID).Int("inputs", len(res.Selection.Inputs)).
		Str("change", tx.FormatAmount(res.Plan.Change, ledger.BaseAssetDecimals)).Msg("transfer built")
	fmt.Fprintln(cmd.OutOrStdout(), res.Payload)
	return nil
}

func (a *Arguments) journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and prune the pending-spend journal",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List pending spends",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withJournal(func(j *journal.Journal) error {
					entries, err := j.Entries()
					if err != nil {
						return err
					}
					for _, e := range entries {
						sids := make([]string, len(e.SIDs))
						for i, sid := range e.SIDs {
							sids[i] = sid.String()
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%x\t%d\t%s\n", e.Digest, e.SeqID, strings.Join(sids, ","))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Drop spends older than the window at the ledger's sequence id",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				seqID, err := client.SeqID(cmd.Context())
				if err != nil {
					return err
				}
				return a.withJournal(func(j *journal.Journal) error {
					n, err := j.Prune(seqID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries at seq id %d\n", n, seqID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "release <digest>",
			Short: "Release the outputs of one pending spend",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				digest, err := hex.DecodeString(args[0])
				if err != nil {
					return fmt.Errorf("%w: digest: %w", tx.ErrInvalidParams, err)
				}
				return a.withJournal(func(j *journal.Journal) error {
					return j.Release(digest)
				})
			},
		},
	)
	return cmd
}

func (a *Arguments) withJournal(fn func(*journal.Journal) error) (err error) {
	path := a.cfg.JournalPath()
	if path == "" {
		return errors.New("journal is disabled in the configuration")
	}
	j, store, err := a.openJournal(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, store.Close()) }()
	return fn(j)
}

func (a *Arguments) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigPath(a.cfg.DataDir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveConfig(path, a.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd, &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "datadir = %s\nendpoint = %s\nnetwork = %s\nminfee = %d\ntimeout = %s\nretries = %d\njournal = %s\nloglevel = %s\nlogfile = %s\ndnssec = %t\n",
				c.DataDir, c.Endpoint, c.Network, c.MinFee, c.Timeout, c.Retries, c.JournalPath(), c.LogLevel, c.LogFile, c.DNSSEC)
			return nil
		},
	})
	return cmd
}

func (a *Arguments) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Create and inspect sender keys",
	}
	var (
		words int
		out   string
	)
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a mnemonic and print its public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bits := wallet.Mnemonic12Words
			if words == 24 {
				bits = wallet.Mnemonic24Words
			} else if words != 12 {
				return fmt.Errorf("%w: --words must be 12 or 24", tx.ErrInvalidParams)
			}
			mnemonic, err := wallet.GenerateMnemonic(bits)
			if err != nil {
				return err
			}
			kp, err := wallet.RestoreKeypairFromMnemonic(mnemonic, "")
			if err != nil {
				return err
			}
			if out != "" {
				password := a.env()[config.EnvPrefix+"PASSWORD"]
				if password == "" {
					return fmt.Errorf("%w: set LIBXFR_PASSWORD to encrypt the keystore", tx.ErrInvalidParams)
				}
				if err := wallet.SaveKeystore(out, []byte(mnemonic), password); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
			}
			fmt.Fprintln(cmd.OutOrStdout(), wallet.EncodePublicKey(kp.PublicKey()))
			return nil
		},
	}
	newCmd.Flags().IntVar(&words, "words", 12, "Mnemonic length, 12 or 24")
	newCmd.Flags().StringVar(&out, "out", "", "Write an encrypted keystore instead of printing the mnemonic")

	cmd.AddCommand(newCmd, &cobra.Command{
		Use:   "show",
		Short: "Print the public key of the sender key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := a.sender()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), wallet.EncodePublicKey(kp.PublicKey()))
			return nil
		},
	})
	return cmd
}
