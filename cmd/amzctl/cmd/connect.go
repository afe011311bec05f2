package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/sellerops/amazon-connector/internal/api/client"
)

func connectCmd() *cobra.Command {
	connectRoot := &cobra.Command{
		Use:   "connect",
		Short: "Manage the SP-API credential",
		Long: "Install, inspect, and refresh the Login-with-Amazon credential the\n" +
			"connector uses to call the Selling Partner API.",
	}

	connectRoot.AddCommand(
		connectInstallCmd(),
		connectStatusCmd(),
		connectRefreshCmd(),
	)

	return connectRoot
}

func connectInstallCmd() *cobra.Command {
	var req apiclient.ConnectRequest

	c := &cobra.Command{
		Use:   "install",
		Short: "Install and verify LWA credentials",
		Example: `  amzctl connect install --refresh-token Atzr... --client-id amzn1.application... --client-secret ...
  amzctl connect install --refresh-token Atzr... --client-id ... --client-secret ... --app-id amzn1.sp.solution...`,
		RunE: func(_ *cobra.Command, _ []string) error {
			result, err := newClient().Connect(context.Background(), req)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(result)
			}
			fmt.Printf("Status: %s (connected at %s)\n",
				result.Status, result.ConnectedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	c.Flags().StringVar(&req.RefreshToken, "refresh-token", "", "LWA refresh token")
	c.Flags().StringVar(&req.ClientID, "client-id", "", "LWA client ID")
	c.Flags().StringVar(&req.ClientSecret, "client-secret", "", "LWA client secret")
	c.Flags().StringVar(&req.AppID, "app-id", "", "Seller Central application ID")
	cobra.CheckErr(c.MarkFlagRequired("refresh-token"))
	cobra.CheckErr(c.MarkFlagRequired("client-id"))
	cobra.CheckErr(c.MarkFlagRequired("client-secret"))

	return c
}

func connectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection state",
		RunE: func(_ *cobra.Command, _ []string) error {
			status, err := newClient().GetConnectionStatus(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(status)
			}
			return printConnectionStatus(status)
		},
	}
}

func connectRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force an access-token refresh",
		RunE: func(_ *cobra.Command, _ []string) error {
			result, err := newClient().RefreshConnection(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(result)
			}
			fmt.Printf("Status: %s (expires %s)\n",
				result.Status, result.ExpiresAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}
