package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"seam/internal/daemonctl"
	"seam/internal/ipc"
)

func newServiceCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start syncthing (launching the daemon if needed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			client, launched, err := daemonctl.EnsureDaemon(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			defer client.Close()

			if launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			resp, err := client.Start()
			if err != nil {
				return err
			}
			if resp.Started {
				fmt.Fprintln(stdout, "Syncthing starting")
				return nil
			}
			message := strings.TrimSpace(resp.Message)
			if strings.Contains(message, "not stopped") {
				fmt.Fprintln(stdout, "Syncthing already running")
				return nil
			}
			if message != "" {
				return errors.New(message)
			}
			return errors.New("start request failed")
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Gracefully stop syncthing",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := daemonctl.Dial(ctx.socketPath())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			resp, err := client.Stop()
			_ = client.Close()
			if err != nil {
				return err
			}
			if !resp.Stopped {
				fmt.Fprintln(stdout, resp.Message)
				return nil
			}
			fmt.Fprintln(stdout, "Shutdown requested, waiting...")
			if err := daemonctl.WaitForStopped(ctx.socketPath(), 30*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Syncthing stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Ask the running syncthing instance to restart itself",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Restart()
				if err != nil {
					return err
				}
				if resp.Restarted {
					fmt.Fprintln(stdout, "Restart requested")
				} else {
					fmt.Fprintln(stdout, resp.Message)
				}
				return nil
			})
		},
	}

	var killAll bool
	killCmd := &cobra.Command{
		Use:   "kill",
		Short: "Terminate syncthing immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Kill(killAll)
				if err != nil {
					return err
				}
				if killAll && resp.Strays > 0 {
					fmt.Fprintf(stdout, "Syncthing killed (%d stray instances terminated)\n", resp.Strays)
				} else {
					fmt.Fprintln(stdout, "Syncthing killed")
				}
				return nil
			})
		},
	}
	killCmd.Flags().BoolVar(&killAll, "all", false, "also kill stray syncthing instances on this host")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, killCmd}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "seamd"), nil
}
