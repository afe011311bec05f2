package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func processedCmd() *cobra.Command {
	processedRoot := &cobra.Command{
		Use:   "processed",
		Short: "List and download processed data sets",
	}

	processedRoot.AddCommand(
		processedListCmd(),
		processedDownloadCmd(),
		processedLatestCmd(),
	)

	return processedRoot
}

func processedListCmd() *cobra.Command {
	var marketplaceID string

	c := &cobra.Command{
		Use:   "list",
		Short: "List cached processed sets",
		RunE: func(_ *cobra.Command, _ []string) error {
			entries, err := newClient().ListProcessed(context.Background(), marketplaceID)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No processed sets found.")
				return nil
			}
			return printProcessedTable(entries)
		},
	}

	c.Flags().StringVar(&marketplaceID, "marketplace", "", "filter by marketplace ID")

	return c
}

func processedDownloadCmd() *cobra.Command {
	var outFile string

	c := &cobra.Command{
		Use:   "download <key>",
		Short: "Download one processed set as CSV",
		Args:  cobra.ExactArgs(1),
		Example: `  amzctl processed download processed_data_A1PA6795UKMFR9_20260830120000
  amzctl processed download processed_data_... -o orders.csv`,
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := newClient().DownloadProcessed(context.Background(), args[0])
			if err != nil {
				return err
			}
			return writeCSVOutput(outFile, data)
		},
	}

	c.Flags().StringVarP(&outFile, "out", "o", "", "write to file instead of stdout")

	return c
}

func processedLatestCmd() *cobra.Command {
	var outFile string

	c := &cobra.Command{
		Use:   "latest <marketplace_id>",
		Short: "Download the newest processed set for a marketplace",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := newClient().DownloadLatestProcessed(context.Background(), args[0])
			if err != nil {
				return err
			}
			return writeCSVOutput(outFile, data)
		},
	}

	c.Flags().StringVarP(&outFile, "out", "o", "", "write to file instead of stdout")

	return c
}

func writeCSVOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(data), path)
	return nil
}
