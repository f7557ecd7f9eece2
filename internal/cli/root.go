// Package cli defines the batchrev command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "batchrev",
	Short:         "Batch review queue for Gerrit",
	Long:          "batchrev stages assigned Gerrit changes into an ordered batch,\nresolves their relation chains, and applies votes or submits in bulk.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default ~/.batchrev/config.yaml)")
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
