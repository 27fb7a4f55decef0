package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/query"
)

var (
	findSortField string
	findReverse   bool
	findBatchSize int
	findLimit     int
	findFormat    string
	findJSON      bool
	findExplain   bool
)

var findCmd = &cobra.Command{
	Use:   "find <expression>",
	Short: "Search the index",
	Long: `Search the index with a query expression.

Terms are matched against subject and body; field:value scopes a term to
one field. Combine with AND, OR, NOT (or a leading -) and parentheses;
adjacent terms are and-ed. Ranges use lo..hi:

  from:alice         contact fields match names and addresses
  subject:report     word in the subject
  maildir:/inbox     exact maildir
  flag:unread        flag names: draft, flagged, new, passed, replied, seen,
                     trashed, signed, encrypted, attach, unread
  prio:high          high, normal or low
  date:2024..2024-06 dates accept partial YYYYMMDD[HHMMSS] and 2w, 3d, today
  size:1k..2M        sizes in bytes with k or M suffix
  rep*               prefix match

The --fields format prints one line per message; shortcut letters
(d date, f from, t to, c cc, s subject, l path, m maildir, i msgid, g flags,
p prio, z size) expand to field values and other characters are copied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := strings.Join(args, " ")

		s, err := openIndexForRead()
		if err != nil {
			return err
		}
		defer s.Close()

		engine, err := query.New(s, query.WithLogger(logger))
		if err != nil {
			return err
		}

		if findExplain {
			plan, err := engine.Explain(expr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plan)
			return nil
		}

		opts, err := findRunOptions(cmd)
		if err != nil {
			return err
		}
		limit := cfg.Query.Limit
		if cmd.Flags().Changed("limit") {
			limit = findLimit
		}

		it, err := engine.Run(cmd.Context(), expr, opts)
		if err != nil {
			return err
		}
		defer it.Close()

		var msgs []*query.Message
		for msg, err := range it.All(cmd.Context()) {
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
			if limit > 0 && len(msgs) >= limit {
				break
			}
		}

		if findJSON {
			return outputFindJSON(cmd.OutOrStdout(), msgs)
		}
		if len(msgs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No messages found.")
			return nil
		}
		return outputFindLines(cmd.OutOrStdout(), msgs, findFormat)
	},
}

// findRunOptions combines the [query] config defaults with the flags.
func findRunOptions(cmd *cobra.Command) (query.RunOptions, error) {
	opts := query.DefaultRunOptions()
	opts.BatchSize = cfg.Query.BatchSize
	if cmd.Flags().Changed("batch-size") {
		opts.BatchSize = findBatchSize
	}

	sortName := cfg.Query.SortField
	if cmd.Flags().Changed("sortfield") {
		sortName = findSortField
	}
	if sortName != "" {
		id, err := fields.Resolve(sortName)
		if err != nil {
			return opts, fmt.Errorf("invalid --sortfield: %w", err)
		}
		opts.Sort = query.SortBy(id)
	}

	reverse := cfg.Query.Reverse
	if cmd.Flags().Changed("reverse") {
		reverse = findReverse
	}
	opts.Reverse = reverse
	return opts, nil
}

// formatMessage renders msg with a format string of field shortcuts.
func formatMessage(msg *query.Message, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if id, _ := fields.IDFromShortcut(c, false); id != fields.None {
			b.WriteString(msg.Value(id))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func outputFindLines(w io.Writer, msgs []*query.Message, format string) error {
	for _, msg := range msgs {
		if _, err := fmt.Fprintln(w, formatMessage(msg, format)); err != nil {
			return err
		}
	}
	return nil
}

func outputFindJSON(w io.Writer, msgs []*query.Message) error {
	if msgs == nil {
		msgs = []*query.Message{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(msgs)
}

func init() {
	findCmd.Flags().StringVarP(&findSortField, "sortfield", "s", "", "sort by field name or shortcut (default: relevance)")
	findCmd.Flags().BoolVarP(&findReverse, "reverse", "z", false, "reverse the sort order")
	findCmd.Flags().IntVar(&findBatchSize, "batch-size", 0, "documents fetched per round trip (0: all at once)")
	findCmd.Flags().IntVarP(&findLimit, "limit", "n", 0, "print at most this many messages (0: all)")
	findCmd.Flags().StringVarP(&findFormat, "fields", "f", "d f s", "output format of field shortcuts")
	findCmd.Flags().BoolVar(&findJSON, "json", false, "output as JSON")
	findCmd.Flags().BoolVar(&findExplain, "explain", false, "print the parsed query instead of running it")
	rootCmd.AddCommand(findCmd)
}
