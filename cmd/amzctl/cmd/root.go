// Package cmd implements the amzctl CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/sellerops/amazon-connector/internal/api/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "amzctl",
		Short: "CLI client for the Amazon connector",
		Long: "amzctl is a command-line client for the amazon-connector API.\n" +
			"It lets you connect SP-API credentials, trigger fetches, inspect\n" +
			"activity history, and download processed data from the terminal.",
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.amzctl.yaml)")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(inventoryCmd())
	rootCmd.AddCommand(activitiesCmd())
	rootCmd.AddCommand(processedCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(marketplacesCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".amzctl")
	}

	viper.SetEnvPrefix("AMZCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
