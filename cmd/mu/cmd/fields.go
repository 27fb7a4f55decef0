package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/whunmr/mu/internal/fields"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the message fields known to the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSHORTCUT\tTYPE\tINDEXED AS")
		fields.ForEach(func(id fields.ID) {
			d, _ := fields.Lookup(id)
			shortcut := "-"
			if d.Shortcut != 0 {
				shortcut = string(d.Shortcut)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, shortcut, d.Type, indexedAs(d))
		})
		return w.Flush()
	},
}

func indexedAs(d fields.Descriptor) string {
	var kinds []string
	if d.FullTextIndexed() {
		kinds = append(kinds, "text")
	}
	if d.ContactIndexed() {
		kinds = append(kinds, "contact")
	}
	if d.ExactTermIndexed() {
		kinds = append(kinds, "term")
	}
	if d.SortValueStored() {
		kinds = append(kinds, "value")
	}
	if len(kinds) == 0 {
		return "-"
	}
	return strings.Join(kinds, ",")
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
