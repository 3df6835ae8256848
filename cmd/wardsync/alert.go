package main

import (
	"context"

	"github.com/spf13/cobra"
)

var alertCmd = &cobra.Command{
	Use:   "alert <bed-id>",
	Short: "Trigger a help alert for a bed",
	Long: `Alert raises a help call for the patient in a bed. Offline, the
alert is queued and sent on reconnect; re-triggering while offline
replaces the queued alert so at most one is ever sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runAlert,
}

var alertPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List unresolved help alerts (online only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Alerts.Pending(context.Background())
		if err != nil {
			return err
		}
		if res.OK && !jsonOutput {
			printJSON(res.Data)
			return nil
		}
		return reportResult(res, "listed alerts")
	},
}

var alertResolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Mark a help alert as attended (online only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Alerts.Resolve(context.Background(), args[0])
		if err != nil {
			return err
		}
		return reportResult(res, "resolved alert")
	},
}

func init() {
	alertCmd.AddCommand(alertPendingCmd, alertResolveCmd)
	rootCmd.AddCommand(alertCmd)
}

func runAlert(cmd *cobra.Command, args []string) error {
	res, err := apiClient.Alerts.Trigger(context.Background(), args[0])
	if err != nil {
		return err
	}
	return reportResult(res, "triggered alert")
}
