package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func fetchCmd() *cobra.Command {
	var from, to string

	c := &cobra.Command{
		Use:   "fetch <marketplace_id>",
		Short: "Trigger a fetch run on the server",
		Args:  cobra.ExactArgs(1),
		Example: `  amzctl fetch A1PA6795UKMFR9 --from 2026-08-01 --to 2026-08-08
  amzctl fetch ATVPDKIKX0DER --from 2026-08-29 --to 2026-08-30 --output json`,
		RunE: func(_ *cobra.Command, args []string) error {
			outcome, err := newClient().TriggerFetch(context.Background(), args[0], from, to)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(outcome)
			}
			printFetchSummary(outcome.ActivityID, outcome.RowCount, outcome.CacheKey)
			return nil
		},
	}

	c.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD, inclusive)")
	c.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD, exclusive)")
	cobra.CheckErr(c.MarkFlagRequired("from"))
	cobra.CheckErr(c.MarkFlagRequired("to"))

	return c
}

func inventoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory <marketplace_id>",
		Short: "Trigger an inventory report run on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			outcome, err := newClient().TriggerInventory(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(outcome)
			}
			printFetchSummary(outcome.ActivityID, outcome.RowCount, outcome.CacheKey)
			return nil
		},
	}
}

func printFetchSummary(activityID string, rowCount int, cacheKey string) {
	fmt.Printf("Activity: %s\n", activityID)
	fmt.Printf("Rows: %d\n", rowCount)
	if cacheKey != "" {
		fmt.Printf("Cache key: %s\n", cacheKey)
	}
}
