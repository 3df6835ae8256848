package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hospitalzapata/wardsync/internal/client"
	"github.com/hospitalzapata/wardsync/internal/config"
	"github.com/hospitalzapata/wardsync/internal/events"
)

var rootCmd = &cobra.Command{
	Use:   "wardsync",
	Short: "Offline-first client for the ward management API",
	Long: `Wardsync keeps a local mirror of beds, rooms, islands, nurses and
patients. Mutations made while offline queue up and replay in order
once connectivity returns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
	},
}

var (
	cfg       *config.Config
	logger    *events.Logger
	apiClient *client.Client

	configPath   string
	jsonOutput   bool
	forceOffline bool
	logLevel     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&forceOffline, "offline", false,
		"Skip the network and work from the local cache only")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

func initApp() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	apiClient, err = client.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if forceOffline {
		apiClient.Monitor.SetOnline(false)
	} else if cfg.Sync.DrainOnStart {
		if err := apiClient.Sync.DrainAll(context.Background()); err != nil {
			logger.WithError(err).Debug("Startup drain incomplete")
		}
	}

	return nil
}

func closeApp() {
	if apiClient != nil {
		if err := apiClient.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close client")
		}
	}
}

// Output helpers

func printSuccess(format string, args ...interface{}) {
	color.Green(format, args...)
}

func printError(format string, args ...interface{}) {
	color.Red(format, args...)
}

func printWarning(format string, args ...interface{}) {
	color.Yellow(format, args...)
}

func printInfo(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError("marshal output: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
