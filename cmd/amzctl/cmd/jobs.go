package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func jobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "View scheduler job history",
		Long: "View the execution history of scheduled jobs. Each marketplace has a\n" +
			"fetch job and an inventory job; every run records status, timing, and\n" +
			"any error.",
	}

	jobsRoot.AddCommand(
		jobsListCmd(),
		jobsHistoryCmd(),
	)

	return jobsRoot
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List latest run per job",
		Example: `  amzctl jobs list
  amzctl jobs list --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			runs, err := newClient().ListJobs(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No job runs found.")
				return nil
			}
			return printJobRunsTable(runs)
		},
	}
}

func jobsHistoryCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "history <job_name>",
		Short: "Show run history for a job",
		Args:  cobra.ExactArgs(1),
		Example: `  amzctl jobs history fetch:A1PA6795UKMFR9
  amzctl jobs history inventory:ATVPDKIKX0DER --limit 10 --output json`,
		RunE: func(_ *cobra.Command, args []string) error {
			runs, err := newClient().GetJobHistory(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Printf("No runs found for job %q.\n", args[0])
				return nil
			}
			return printJobRunsTable(runs)
		},
	}

	c.Flags().IntVar(&limit, "limit", 0, "number of runs (default 50)")

	return c
}
