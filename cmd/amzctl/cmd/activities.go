package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/sellerops/amazon-connector/internal/api/client"
)

func activitiesCmd() *cobra.Command {
	activitiesRoot := &cobra.Command{
		Use:   "activities",
		Short: "View fetch and inventory run history",
	}

	activitiesRoot.AddCommand(
		activitiesListCmd(),
		activitiesGetCmd(),
		activitiesStatsCmd(),
	)

	return activitiesRoot
}

func activitiesListCmd() *cobra.Command {
	var filter apiclient.ActivityFilter

	c := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Example: `  amzctl activities list
  amzctl activities list --marketplace A1PA6795UKMFR9 --status failed
  amzctl activities list --since-hours 24 --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			page, err := newClient().ListActivities(context.Background(), filter)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(page)
			}
			if len(page.Activities) == 0 {
				fmt.Println("No activities found.")
				return nil
			}
			return printActivityTable(page.Activities)
		},
	}

	c.Flags().StringVar(&filter.MarketplaceID, "marketplace", "", "filter by marketplace ID")
	c.Flags().StringVar(&filter.Type, "type", "", "filter by type (fetch, process, save, inventory)")
	c.Flags().StringVar(&filter.Status, "status", "", "filter by status (in_progress, completed, failed)")
	c.Flags().IntVar(&filter.SinceHours, "since-hours", 0, "only runs from the last N hours")
	c.Flags().IntVar(&filter.Limit, "limit", 0, "number of results")
	c.Flags().IntVar(&filter.Offset, "offset", 0, "pagination offset")

	return c
}

func activitiesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			activity, err := newClient().GetActivity(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(activity)
			}
			return printActivityDetail(activity)
		},
	}
}

func activitiesStatsCmd() *cobra.Command {
	var sinceHours int

	c := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate run counts",
		RunE: func(_ *cobra.Command, _ []string) error {
			stats, err := newClient().ActivityStats(context.Background(), sinceHours)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(stats)
			}
			return printStats(stats)
		},
	}

	c.Flags().IntVar(&sinceHours, "since-hours", 0, "aggregation window in hours (default 168)")

	return c
}
