package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/pkg/config"
	"github.com/noah-isme/sma-scheduler-api/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "schedulerctl",
		Short:         "Operate the timetable scheduler",
		Long:          `schedulerctl runs database migrations, checks stored schedules for conflicts and serves the scheduler API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newDetectCmd(), newServeCmd())
	return root
}

// bootstrap loads configuration and builds the process logger shared by every subcommand.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}
