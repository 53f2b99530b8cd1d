package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"seam/internal/ipc"
)

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List synced folders and their states",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Folders()
				if err != nil {
					return err
				}
				if len(resp.Folders) == 0 {
					fmt.Fprintln(stdout, "No folders configured")
					return nil
				}

				rows := make([][]string, 0, len(resp.Folders))
				for _, folder := range resp.Folders {
					rows = append(rows, []string{
						folder.ID,
						folder.Label,
						folder.Path,
						folder.State,
						strconv.Itoa(len(folder.SyncingPaths)),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Label", "Path", "State", "Syncing"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
