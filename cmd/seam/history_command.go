package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seam/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent supervisor events from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if len(resp.Entries) == 0 {
					fmt.Fprintln(stdout, "No journal entries")
					return nil
				}

				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					session := entry.SessionID
					if len(session) > 8 {
						session = session[:8]
					}
					rows = append(rows, []string{
						entry.At.Local().Format("2006-01-02 15:04:05"),
						entry.Kind,
						entry.Detail,
						session,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"At", "Kind", "Detail", "Session"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}
