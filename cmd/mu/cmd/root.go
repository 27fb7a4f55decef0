package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/whunmr/mu/internal/config"
	"github.com/whunmr/mu/internal/logging"
)

var (
	cfgFile  string
	homeDir  string
	verbose  bool
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mu",
	Short: "Index and search maildirs",
	Long: `mu indexes the messages in a tree of maildirs and searches them with
a small query language.

  mu index                       bring the index up to date
  mu find from:alice subject:report
  mu extract <message> [part...] list or save MIME parts
  mu serve                       HTTP API with scheduled re-indexing`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logging.ParseLevel(logLevel)
		if verbose {
			level = slog.LevelDebug
		}
		logger = logging.New(cmd.ErrOrStderr(), level)
		slog.SetDefault(logger)

		// fields and extract never touch the index.
		if cmd.Name() == "fields" || cmd.Name() == "extract" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.mu/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides MU_HOME)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "muhome", "", "alias for --home")
	_ = rootCmd.PersistentFlags().MarkHidden("muhome")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error, critical)")
}
