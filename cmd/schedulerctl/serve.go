package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-scheduler-api/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler HTTP API and generation workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, cfg, logr)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
}
