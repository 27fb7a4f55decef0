package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/whunmr/mu/internal/fileutil"
	"github.com/whunmr/mu/internal/indexer"
)

var (
	indexMaildir   string
	indexWorkers   int
	indexMaxBody   int
	indexNoCleanup bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Bring the index up to date with the maildirs",
	Long: `Walk every maildir below the maildir root and index new and changed
messages. Messages whose files disappeared are removed from the index
unless --no-cleanup is given.

The root comes from --maildir, [maildir] root in config.toml, or ~/Maildir.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cfg.Maildir.Root
		if indexMaildir != "" {
			root = fileutil.ExpandHome(indexMaildir)
		}
		opts := indexerOptions()
		if cmd.Flags().Changed("workers") {
			opts.Workers = indexWorkers
		}
		if cmd.Flags().Changed("max-body-runes") {
			opts.MaxBodyRunes = indexMaxBody
		}
		if indexNoCleanup {
			opts.Cleanup = false
		}
		if isTerminal(os.Stderr) {
			opts.Progress = progressPrinter(cmd.ErrOrStderr())
		}

		s, err := openIndexForWrite()
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := indexer.New(s, opts).Run(cmd.Context(), root)
		if opts.Progress != nil {
			fmt.Fprintln(cmd.ErrOrStderr())
		}
		if err != nil {
			return fmt.Errorf("index %s: %w", root, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexed %s in %s\n", root, stats.Duration.Round(time.Millisecond))
		fmt.Fprintf(out, "  New:        %d\n", stats.New)
		fmt.Fprintf(out, "  Updated:    %d\n", stats.Updated)
		fmt.Fprintf(out, "  Up to date: %d\n", stats.UpToDate)
		fmt.Fprintf(out, "  Cleaned up: %d\n", stats.CleanedUp)
		if stats.Errors > 0 {
			fmt.Fprintf(out, "  Errors:     %d\n", stats.Errors)
		}
		return nil
	},
}

// indexerOptions maps the [index] config section onto indexer options.
func indexerOptions() indexer.Options {
	return indexer.Options{
		Workers:      cfg.Index.Workers,
		MaxBodyRunes: cfg.Index.MaxBodyRunes,
		Cleanup:      cfg.Index.Cleanup,
		Logger:       logger,
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func progressPrinter(w io.Writer) func(indexer.Stats) {
	return func(s indexer.Stats) {
		fmt.Fprintf(w, "\rprocessed %d (new %d, updated %d, errors %d)",
			s.Processed(), s.New, s.Updated, s.Errors)
	}
}

func init() {
	indexCmd.Flags().StringVarP(&indexMaildir, "maildir", "m", "", "maildir root (overrides [maildir] root)")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "parallel parsers (default: number of CPUs)")
	indexCmd.Flags().IntVar(&indexMaxBody, "max-body-runes", 0, "index at most this many characters of each body (0: all)")
	indexCmd.Flags().BoolVar(&indexNoCleanup, "no-cleanup", false, "keep documents whose files are gone")
	rootCmd.AddCommand(indexCmd)
}
