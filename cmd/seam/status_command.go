package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"seam/internal/daemonctl"
	"seam/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and syncthing status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			client, err := daemonctl.Dial(ctx.socketPath())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				for _, line := range renderSectionHeader("Seam Status", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, ctx.socketPath(), colorize))
				return nil
			}
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}
			renderStatus(cmd, status, colorize)
			return nil
		},
	}
}

func renderStatus(cmd *cobra.Command, status *ipc.StatusResponse, colorize bool) {
	stdout := cmd.OutOrStdout()
	for _, line := range renderSectionHeader("Seam Status", colorize) {
		fmt.Fprintln(stdout, line)
	}

	fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, "running", colorize))

	kind := statusWarn
	if status.State == "running" {
		kind = statusOK
	}
	fmt.Fprintln(stdout, renderStatusLine("Syncthing", kind, status.State, colorize))

	if status.Running {
		if status.Version != "" {
			fmt.Fprintln(stdout, renderStatusLine("Version", statusInfo, status.Version, colorize))
		}
		if status.PID > 0 {
			fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
		}
		if status.SessionID != "" {
			fmt.Fprintln(stdout, renderStatusLine("Session", statusInfo, status.SessionID, colorize))
		}
		if !status.StartedAt.IsZero() {
			uptime := time.Since(status.StartedAt).Round(time.Second)
			fmt.Fprintln(stdout, renderStatusLine("Uptime", statusInfo, uptime.String(), colorize))
		}
		fmt.Fprintln(stdout, renderStatusLine("Folders", statusInfo, fmt.Sprintf("%d", status.FolderCount), colorize))
		fmt.Fprintln(stdout, renderStatusLine("Devices", statusInfo, fmt.Sprintf("%d", status.DeviceCount), colorize))

		transfer := fmt.Sprintf("down %s up %s (down %s up %s total)",
			formatRate(status.InBytesPerSecond),
			formatRate(status.OutBytesPerSecond),
			formatBytes(status.InBytesTotal),
			formatBytes(status.OutBytesTotal))
		fmt.Fprintln(stdout, renderStatusLine("Transfer", statusInfo, transfer, colorize))
		if !status.LastDeviceEvent.IsZero() {
			last := status.LastDeviceEvent.Local().Format("2006-01-02 15:04:05")
			fmt.Fprintln(stdout, renderStatusLine("Last device", statusInfo, last, colorize))
		}
	}

	fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, status.JournalPath, colorize))
}
