package main

import (
	"github.com/spf13/cobra"
)

var configFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "guildlog",
		Short:        "Relay Discord guild events to log channels",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "config.toml", "config file path")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newInspectCmd())
	return cmd
}
