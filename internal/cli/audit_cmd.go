package cli

import (
	"fmt"

	"github.com/bcharris9/th-26/internal/audit"
	"github.com/bcharris9/th-26/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newAuditCmd(app *App) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "audit [sessionID]",
		Short: "List persisted turn traces",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				entries []audit.Entry
				err     error
			)
			switch {
			case len(args) == 1:
				entries, err = app.Traces.ListBySession(cmd.Context(), args[0])
			default:
				entries, err = app.Traces.ListRecent(cmd.Context(), recent)
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println(formatter.Dim("No traces recorded."))
				return nil
			}
			for i, e := range entries {
				if i > 0 {
					fmt.Println()
				}
				fmt.Println(formatter.FormatAuditEntry(e))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 20, "number of traces to show when no session is given")
	return cmd
}
