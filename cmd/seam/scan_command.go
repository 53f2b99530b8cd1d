package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seam/internal/ipc"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var subPath string

	cmd := &cobra.Command{
		Use:   "scan <folder-id>",
		Short: "Trigger a rescan of a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			folderID := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Scan(folderID, subPath); err != nil {
					return err
				}
				if subPath != "" {
					fmt.Fprintf(stdout, "Scan requested for %s (%s)\n", folderID, subPath)
				} else {
					fmt.Fprintf(stdout, "Scan requested for %s\n", folderID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&subPath, "sub", "", "restrict the scan to a subpath within the folder")
	return cmd
}
