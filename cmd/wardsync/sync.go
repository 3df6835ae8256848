package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync [entity]",
	Short: "Replay queued mutations against the server",
	Long: `Sync drains the offline mutation queue. Without arguments every
entity with queued mutations is drained; with an entity name only that
queue is drained. Entries replay in the order they were made, and the
drain stops at the first network failure so nothing is reordered.`,
	Example: `  wardsync sync
  wardsync sync rooms`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		printWarning("\nSync interrupted, cancelling...")
		cancel()
	}()

	// Render drain notices as they arrive
	done := make(chan struct{})
	var synced, rejected int
	go func() {
		defer close(done)
		for notice := range apiClient.Sync.Notices() {
			switch notice.Type {
			case syncer.NoticeDrainStarted:
				if !jsonOutput {
					printInfo("Draining %s...", notice.Entity)
				}
			case syncer.NoticeEntrySynced:
				synced++
			case syncer.NoticeEntryRejected:
				rejected++
				if !jsonOutput && notice.Err != nil {
					printWarning("Rejected: %v", notice.Err)
				}
			case syncer.NoticeDrainHalted:
				if !jsonOutput && notice.Err != nil {
					printWarning("Halted: %v", notice.Err)
				}
			}
		}
	}()

	var err error
	if len(args) == 1 {
		entity := models.EntityType(args[0])
		if !entity.Valid() {
			return fmt.Errorf("unknown entity type %q", args[0])
		}
		err = apiClient.Sync.Drain(ctx, entity)
	} else {
		err = apiClient.Sync.DrainAll(ctx)
	}

	apiClient.Sync.Close()
	<-done

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":  err == nil,
			"synced":   synced,
			"rejected": rejected,
		})
		return err
	}

	if err != nil {
		return fmt.Errorf("sync incomplete: %w", err)
	}

	printSuccess("Sync complete: %d synced, %d rejected.", synced, rejected)
	return nil
}
