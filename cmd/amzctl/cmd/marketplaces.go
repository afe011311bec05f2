package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func marketplacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "marketplaces",
		Short: "List supported marketplaces",
		RunE: func(_ *cobra.Command, _ []string) error {
			markets, err := newClient().ListMarketplaces(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(markets)
			}
			return printMarketplacesTable(markets)
		},
	}
}
