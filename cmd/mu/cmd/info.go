package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/whunmr/mu/internal/export"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openIndexForRead()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		version, err := s.Version(ctx)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		stats, err := s.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		last, err := s.LastIndexed(ctx)
		if err != nil {
			return fmt.Errorf("read last index time: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Index: %s\n", s.Path())
		fmt.Fprintf(out, "  Maildir root:   %s\n", cfg.Maildir.Root)
		fmt.Fprintf(out, "  Schema version: %d\n", version)
		fmt.Fprintf(out, "  Messages:       %d\n", stats.DocumentCount)
		fmt.Fprintf(out, "  Terms:          %d\n", stats.TermCount)
		fmt.Fprintf(out, "  Postings:       %d\n", stats.PostingCount)
		fmt.Fprintf(out, "  Size:           %s\n", export.FormatBytesLong(stats.DatabaseSize))
		if last > 0 {
			fmt.Fprintf(out, "  Last indexed:   %s\n", time.Unix(last, 0).Local().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Fprintf(out, "  Last indexed:   never\n")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
