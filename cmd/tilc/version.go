package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("tilc %s (commit: %s)\n", appVersion, appCommit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
