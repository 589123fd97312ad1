package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "github.com/noah-isme/sma-scheduler-api/api/swagger"
	"github.com/noah-isme/sma-scheduler-api/internal/server"
	"github.com/noah-isme/sma-scheduler-api/pkg/config"
	"github.com/noah-isme/sma-scheduler-api/pkg/logger"
)

// @title SMA Scheduler API
// @version 1.0.0
// @description Timetable generation, validation and block-day planning
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise application", "error", err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logr.Sugar().Errorw("server failed", "error", err)
	}
}
