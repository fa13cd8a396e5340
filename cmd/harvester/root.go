package main

import (
	"github.com/mapharvest/harvester/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "harvester collects places from map searches and serves them over HTTP.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cli.NewCmdGet())
	rootCmd.AddCommand(cli.NewCmdScrape())
}
