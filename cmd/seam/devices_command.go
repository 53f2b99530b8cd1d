package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seam/internal/ipc"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List known devices and their connection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Devices()
				if err != nil {
					return err
				}
				if len(resp.Devices) == 0 {
					fmt.Fprintln(stdout, "No devices configured")
					return nil
				}

				rows := make([][]string, 0, len(resp.Devices))
				for _, device := range resp.Devices {
					rows = append(rows, []string{
						device.ID,
						device.Name,
						yesNo(device.Connected),
						device.Address,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Name", "Connected", "Address"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
