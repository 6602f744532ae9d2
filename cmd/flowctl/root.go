package main

import (
	"context"
	"os"

	"flow-client/config"
	"flow-client/core/client"
	"flow-client/core/repository"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// Persistent flag values; empty means "not set, use env/file/default"
var (
	flagConfigFile   string
	flagClientID     string
	flagClientSecret string
	flagBaseURL      string
	flagQueueID      string
)

var rootCmd = &cobra.Command{
	Use:           "flowctl",
	Short:         "Client for the Flow Graph Engine compute service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the CLI with ctx as the root context
func Execute(ctx context.Context) error {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagClientID, "client-id", "", "client id (env FLOW_CLIENT_ID)")
	rootCmd.PersistentFlags().StringVar(&flagClientSecret, "client-secret", "", "client secret (env FLOW_CLIENT_SECRET)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "service base URL (env FLOW_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagQueueID, "queue", "", "job queue id (env FLOW_QUEUE_ID)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(downloadCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(mockServerCmd())

	return rootCmd.ExecuteContext(ctx)
}

// resolveConfig layers flags over env over an optional config file
func resolveConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flagConfigFile != "" {
		cfg, err = config.LoadFile(flagConfigFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Load()
	}

	if flagClientID != "" {
		cfg.ClientID = flagClientID
	}
	if flagClientSecret != "" {
		cfg.ClientSecret = flagClientSecret
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagQueueID != "" {
		cfg.QueueID = flagQueueID
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		QueueID:      cfg.QueueID,
		Logger:       logger,
	})
}

// openHistory opens the run-history store if one is configured. A
// broken history DB degrades to a warning, never a failed command.
func openHistory(cfg *config.Config) *repository.HistoryStore {
	if cfg.HistoryDB == "" {
		return nil
	}
	store, err := repository.OpenHistory(cfg.HistoryDB)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.HistoryDB).Msg("run history disabled")
		return nil
	}
	return store
}
