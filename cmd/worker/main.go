package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yungbote/mediahub-backend/internal/app"
)

func main() {
	_ = godotenv.Load()

	log, err := app.NewLogger()
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := app.NewWorker(ctx, log, cfg)
	if err != nil {
		log.Error("Could not init worker", "error", err)
		os.Exit(1)
	}
	defer worker.Close()

	if err := worker.Run(ctx); err != nil {
		log.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	log.Info("Worker stopped")
}
