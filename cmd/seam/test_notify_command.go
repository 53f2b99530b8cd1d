package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"seam/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if !resp.Sent {
					if resp.Message != "" {
						return errors.New(resp.Message)
					}
					return errors.New("notification test failed")
				}
				fmt.Fprintln(stdout, "Test notification sent")
				return nil
			})
		},
	}
}
