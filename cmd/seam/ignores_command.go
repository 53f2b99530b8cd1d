package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seam/internal/ipc"
)

func newIgnoresCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignores",
		Short: "Inspect and refresh folder ignore patterns",
	}

	showCmd := &cobra.Command{
		Use:   "show <folder-id>",
		Short: "Print the ignore patterns cached for a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			folderID := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Folders()
				if err != nil {
					return err
				}
				for _, folder := range resp.Folders {
					if folder.ID != folderID {
						continue
					}
					if len(folder.IgnoreLines) == 0 {
						fmt.Fprintf(stdout, "No ignore patterns for %s\n", folderID)
						return nil
					}
					for _, line := range folder.IgnoreLines {
						fmt.Fprintln(stdout, line)
					}
					return nil
				}
				return fmt.Errorf("unknown folder %q", folderID)
			})
		},
	}

	reloadCmd := &cobra.Command{
		Use:   "reload <folder-id>",
		Short: "Refetch ignore patterns for a folder from syncthing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			folderID := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ReloadIgnores(folderID); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Ignore patterns reloaded for %s\n", folderID)
				return nil
			})
		},
	}

	cmd.AddCommand(showCmd, reloadCmd)
	return cmd
}
