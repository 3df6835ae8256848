package main

import (
	"github.com/spf13/cobra"

	"github.com/hospitalzapata/wardsync/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and queued mutation counts",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	type entityStatus struct {
		Entity  models.EntityType `json:"entity"`
		Pending int               `json:"pending"`
	}

	var statuses []entityStatus
	total := 0
	for _, entity := range models.AllEntityTypes() {
		repo, err := apiClient.Repo(entity)
		if err != nil {
			continue
		}
		count, err := repo.PendingCount()
		if err != nil {
			return err
		}
		statuses = append(statuses, entityStatus{Entity: entity, Pending: count})
		total += count
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"online":  apiClient.Monitor.Online(),
			"pending": total,
			"queues":  statuses,
		})
		return nil
	}

	if apiClient.Monitor.Online() {
		printSuccess("Online")
	} else {
		printWarning("Offline")
	}

	if total == 0 {
		printInfo("No queued mutations.")
		return nil
	}

	printInfo("Queued mutations: %d", total)
	for _, s := range statuses {
		if s.Pending > 0 {
			printInfo("  %-12s %d", s.Entity, s.Pending)
		}
	}
	return nil
}
