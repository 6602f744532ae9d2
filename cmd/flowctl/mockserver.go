package main

import (
	"context"
	"net/http"
	"time"

	"flow-client/api/mock"

	"github.com/spf13/cobra"
)

func mockServerCmd() *cobra.Command {
	var (
		port         string
		clientID     string
		clientSecret string
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory fake of the compute service",
		Long: `Serves a fake of the remote API on localhost for development and
demos: point flowctl at it with --base-url and the configured
credentials, and submitted jobs succeed after a couple of polls.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			service := mock.NewService(clientID, clientSecret)
			server := &http.Server{
				Addr:    ":" + port,
				Handler: service,
			}

			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				server.Shutdown(ctx)
			}()

			logger.Info().Str("addr", server.Addr).Msg("mock service listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "8080", "port to listen on")
	cmd.Flags().StringVar(&clientID, "mock-client-id", "mock", "client id the fake accepts")
	cmd.Flags().StringVar(&clientSecret, "mock-client-secret", "mock", "client secret the fake accepts")
	return cmd
}
