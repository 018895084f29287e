package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/spf13/cobra"
)

var topicsFormat string

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the activity events published by the broker",
	Long: `List every event the broker publishes on the in-process bus after a room
is created, joined or left, or a message is sent.

Output formats:
  table - Human-readable table format (default)
  json  - Machine-readable JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		topics := presence.Topics()

		switch topicsFormat {
		case "json":
			type topicJSON struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			list := make([]topicJSON, 0, len(topics))
			for _, t := range topics {
				list = append(list, topicJSON{Name: t.Name(), Description: t.Description()})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		case "table":
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			fmt.Fprintln(w, "----\t-----------")
			for _, t := range topics {
				fmt.Fprintf(w, "%s\t%s\n", t.Name(), t.Description())
			}
			return w.Flush()
		default:
			return fmt.Errorf("unsupported output format %q, use table or json", topicsFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.Flags().StringVarP(&topicsFormat, "format", "f", "table", "Output format (table, json)")
}
