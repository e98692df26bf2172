// Command worker runs the Worker Pool (C9): WORKER_COUNT goroutines
// each looping claim -> orchestrate -> extract -> unify -> complete
// until SIGINT/SIGTERM, honoring in-flight jobs before exit.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geofacts/venues/internal/app"
	"github.com/geofacts/venues/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	openCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := app.New(openCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer svc.Close()

	ctx, stop := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		svc.Log.Info().Msg("worker pool shutting down")
		stop()
	}()

	svc.Log.Info().Int("workers", cfg.Worker.Count).Msg("starting worker pool")
	svc.WorkerPool.Run(ctx)
	svc.Log.Info().Msg("worker pool stopped")
}
