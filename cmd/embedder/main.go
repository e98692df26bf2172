// Command embedder runs the Embedding Producer (C11) on a sleep loop,
// embedding venues with a non-empty description that have no embedding
// yet or whose embedding is past its valid_until.
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

const embedBatchSize = 50

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
		svc.Log.Info().Msg("embedder shutting down")
		stop()
	}()

	sleep := cfg.Worker.Sleep()
	svc.Log.Info().Dur("interval", sleep).Msg("starting embedding producer loop")
	ticker := time.NewTicker(sleep)
	defer ticker.Stop()

	for {
		n, err := svc.Embedder.ProcessBatch(ctx, embedBatchSize)
		if err != nil {
			svc.Log.Error().Err(err).Msg("embedding batch failed")
		} else if n > 0 {
			svc.Log.Info().Int("embedded", n).Msg("embedding batch complete")
		}

		select {
		case <-ctx.Done():
			svc.Log.Info().Msg("embedder stopped")
			return
		case <-ticker.C:
		}
	}
}
