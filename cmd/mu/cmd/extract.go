package cmd

import (
	"github.com/spf13/cobra"

	"github.com/whunmr/mu/internal/extract"
	"github.com/whunmr/mu/internal/fileutil"
)

var (
	extractTargetDir string
	extractOverwrite bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <message-path> [part-index ...]",
	Short: "List or save the MIME parts of a message",
	Long: `Without part indices, list the parts of a message file as
"index filename type/subtype [disposition]". With indices, save those parts
to the target directory. Parts are numbered from 1.

Saving stops at the first part that cannot be saved.

Examples:
  mu extract ~/Maildir/inbox/cur/1234.host:2,S
  mu extract ~/Maildir/inbox/cur/1234.host:2,S 2 3 --target-dir /tmp`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := extract.Run(cmd.OutOrStdout(), args[0], args[1:], extract.Options{
			TargetDir: fileutil.ExpandHome(extractTargetDir),
			Overwrite: extractOverwrite,
			Logger:    logger,
		})
		if err != nil {
			logger.Warn("extract failed", "path", args[0], "error", err)
		}
		return err
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractTargetDir, "target-dir", ".", "directory to save parts in")
	extractCmd.Flags().BoolVar(&extractOverwrite, "overwrite", false, "replace existing files")
	rootCmd.AddCommand(extractCmd)
}
