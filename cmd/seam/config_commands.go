package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seam/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the seam configuration file",
	}

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			path := ctx.configPath()
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Sample configuration written to %s\n", path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Executable", statusInfo, cfg.Syncthing.ExecutablePath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Address", statusInfo, cfg.Syncthing.Address, colorize))
			fmt.Fprintln(stdout, renderStatusLine("State dir", statusInfo, cfg.Paths.StateDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Log dir", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, cfg.SocketPath(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, cfg.JournalPath(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Auto start", statusInfo, yesNo(cfg.Supervisor.StartOnLaunch), colorize))
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
