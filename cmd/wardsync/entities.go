package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hospitalzapata/wardsync/internal/models"
)

func init() {
	addEntityCommands("beds", models.EntityBeds,
		"Manage beds (listing includes occupancy status)")
	addEntityCommands("rooms", models.EntityRooms,
		"Manage rooms")
	addEntityCommands("islands", models.EntityIslands,
		"Manage islands")
	addEntityCommands("nurses", models.EntityNurses,
		"Manage nurses")
	addEntityCommands("patients", models.EntityPatients,
		"Manage patients")
}

// addEntityCommands registers list/create/update/delete for one
// entity type. All entities share the same command shape; route and
// offline policy differences live in the repository descriptors.
func addEntityCommands(use string, entity models.EntityType, short string) {
	parent := &cobra.Command{
		Use:   use,
		Short: short,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntityList(entity)
		},
	}

	var createData string
	createCmd := &cobra.Command{
		Use:     "create",
		Short:   fmt.Sprintf("Create a %s entry", use),
		Example: fmt.Sprintf(`  wardsync %s create --data '{"name":"North wing"}'`, use),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntityCreate(entity, createData)
		},
	}
	createCmd.Flags().StringVar(&createData, "data", "", "Entity JSON (required)")
	_ = createCmd.MarkFlagRequired("data")

	var updateData string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Update a %s entry", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntityUpdate(entity, args[0], updateData)
		},
	}
	updateCmd.Flags().StringVar(&updateData, "data", "", "Entity JSON (required)")
	_ = updateCmd.MarkFlagRequired("data")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s entry", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntityDelete(entity, args[0])
		},
	}

	parent.AddCommand(listCmd, createCmd, updateCmd, deleteCmd)
	rootCmd.AddCommand(parent)
}

func runEntityList(entity models.EntityType) error {
	repo, err := apiClient.Repo(entity)
	if err != nil {
		return err
	}

	docs, err := repo.List(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(docs)
		return nil
	}

	if len(docs) == 0 {
		printInfo("No %s found.", entity)
		return nil
	}

	for _, doc := range docs {
		marker := " "
		if doc.Pending {
			marker = "*"
		}
		printInfo("%s %-24s %s", marker, doc.ID, summarize(doc.Payload))
	}
	if !apiClient.Monitor.Online() {
		printWarning("(offline: showing cached data; * marks unsynced entries)")
	}
	return nil
}

func runEntityCreate(entity models.EntityType, data string) error {
	repo, err := apiClient.Repo(entity)
	if err != nil {
		return err
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return fmt.Errorf("invalid --data JSON: %w", err)
	}

	res, err := repo.Create(context.Background(), payload)
	if err != nil {
		return err
	}
	return reportResult(res, "created")
}

func runEntityUpdate(entity models.EntityType, id, data string) error {
	repo, err := apiClient.Repo(entity)
	if err != nil {
		return err
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return fmt.Errorf("invalid --data JSON: %w", err)
	}

	res, err := repo.Update(context.Background(), id, payload)
	if err != nil {
		return err
	}
	return reportResult(res, "updated")
}

func runEntityDelete(entity models.EntityType, id string) error {
	repo, err := apiClient.Repo(entity)
	if err != nil {
		return err
	}

	res, err := repo.Delete(context.Background(), id)
	if err != nil {
		return err
	}
	return reportResult(res, "deleted")
}

// reportResult renders the uniform operation outcome.
func reportResult(res models.Result, verb string) error {
	if jsonOutput {
		printJSON(res)
		if !res.OK {
			return fmt.Errorf("%s", res.Message)
		}
		return nil
	}

	switch {
	case res.OK && res.Offline:
		printWarning("Queued: %s", res.Message)
	case res.OK:
		printSuccess("Successfully %s.", verb)
		if res.Message != "" {
			printInfo("%s", res.Message)
		}
	default:
		printError("Rejected: %s", res.Message)
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}

// summarize renders a short description of an entity payload.
func summarize(payload json.RawMessage) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return string(payload)
	}

	for _, key := range []string{"bedLabel", "name", "document", "qrCode"} {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}

	compact, err := json.Marshal(fields)
	if err != nil {
		return string(payload)
	}
	return string(compact)
}
