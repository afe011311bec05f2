// Package cmd implements the CLI commands for amazon-connector.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "amazon-connector",
	Short: "Pull Amazon SP-API order and inventory data into your databases",
	Long: "An API-first connector that fetches orders, order items and FBA inventory\n" +
		"from the Amazon Selling Partner API, computes VAT-split revenue rows, and\n" +
		"saves them to the configured warehouse and analytics databases.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
