/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/config"
	"github.com/ssargent/sasinspect/pkg/di"
	"github.com/ssargent/sasinspect/pkg/inspect"
	"github.com/ssargent/sasinspect/pkg/ledger"
	"github.com/ssargent/sasinspect/pkg/logging"
	"github.com/ssargent/sasinspect/pkg/notify"
	"github.com/ssargent/sasinspect/pkg/storage"
)

const storeDirName = "store"

var (
	container *di.Container
	cfg       *config.Config
	logger    = zap.NewNop().Sugar()
)

// SetContainer injects the dependency container used by the commands
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sasinspect",
	Short: "Inspect Solana Attestation Service accounts",
	Long: `sasinspect decodes Solana Attestation Service (SAS) credential, schema
and attestation accounts. It can decode raw account bytes offline, fetch
accounts over JSON-RPC, find the account a block created for the SAS program,
keep the reports it produces, and serve all of that over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := logging.FromConfig(cfg.Logging.Format, cfg.Logging.Level)
		if err != nil {
			return err
		}
		logger = l.Sugar()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ~/.config/sasinspect/config.yaml)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the account cache and reports")
	rootCmd.PersistentFlags().String("rpc", "", "Solana JSON-RPC endpoint")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("format", "o", "table", "Output format (table, json)")
}

// configPath returns the --config flag or the default location
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// loadSettings reads the config file when present, then applies the
// environment and finally any global flags that were set
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)

	c := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	if err := config.ApplyEnv(c); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		c.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("rpc") {
		c.RPC.Endpoint, _ = flags.GetString("rpc")
	}
	if flags.Changed("log-level") {
		c.Logging.Level, _ = flags.GetString("log-level")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "table", "json":
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

// environment is what the online commands need; release closes it
type environment struct {
	inspector *inspect.Inspector
	ledger    ledger.Ledger
	release   func()
}

// envOptions select which parts of the environment to open
type envOptions struct {
	program  codec.Identifier
	ledger   bool
	storage  bool
	publish  bool
	registry prometheus.Registerer
}

func recordCodec() *codec.RecordCodec {
	if cfg.Decoder.StrictUTF8 {
		return codec.NewRecordCodec(codec.WithStrictUTF8())
	}
	return codec.NewRecordCodec()
}

func programID() codec.Identifier {
	// Validate has already checked the id
	return codec.MustParseIdentifier(cfg.Program.ID)
}

// openEnvironment builds an inspector from the loaded config and the
// container's factories
func openEnvironment(opts envOptions) (*environment, error) {
	if container == nil {
		return nil, fmt.Errorf("dependency container not initialized")
	}

	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	icfg := inspect.Config{
		Codec:       recordCodec(),
		Program:     opts.program,
		Concurrency: cfg.Decoder.Concurrency,
		CacheTTL:    cfg.RPC.CacheTTL,
		Logger:      logger,
	}
	if icfg.Program.IsZero() {
		icfg.Program = programID()
	}
	if opts.registry != nil {
		icfg.Metrics = inspect.NewMetrics(opts.registry)
	}

	if opts.ledger {
		l, err := container.GetLedgerFactory().NewLedger(ledger.Config{
			Endpoint:   cfg.RPC.Endpoint,
			Commitment: cfg.RPC.Commitment,
			Timeout:    cfg.RPC.Timeout,
			MaxElapsed: cfg.RPC.MaxElapsed,
			Logger:     logger.With("component", "ledger"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ledger client: %w", err)
		}
		icfg.Ledger = l
	}

	if opts.storage {
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		store, err := storage.NewDefaultStorage(filepath.Join(cfg.DataDir, storeDirName))
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warnw("failed to close storage", "error", err)
			}
		})
		icfg.Storage = store
	}

	if opts.publish && cfg.AMQP.URL != "" {
		p, err := container.GetPublisherFactory().NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to connect to report broker: %w", err)
		}
		closers = append(closers, func() { _ = p.Close() })
		icfg.Publisher = p
	} else {
		icfg.Publisher = notify.Nop{}
	}

	in, err := inspect.New(icfg)
	if err != nil {
		release()
		return nil, err
	}

	return &environment{inspector: in, ledger: icfg.Ledger, release: release}, nil
}
