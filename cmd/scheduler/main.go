// Command scheduler runs the Scheduler (C10): a periodic staleness
// sweep enqueueing background crawl jobs. With TEMPORAL_HOST set it
// runs StalenessSweepWorkflow on a cron schedule under a Temporal
// worker; otherwise it falls back to a plain ticker calling RunCycle
// directly (spec §9 design note: the Worker Pool and Orchestrator stay
// off Temporal, but the Scheduler's cron sweep has no per-job deadline
// or process-local rate-gate state to conflict with, so it's a clean
// fit either way).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/geofacts/venues/internal/app"
	"github.com/geofacts/venues/internal/config"
	"github.com/geofacts/venues/internal/scheduler"
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
		svc.Log.Info().Msg("scheduler shutting down")
		stop()
	}()

	if cfg.TemporalHostPort != "" {
		runUnderTemporal(ctx, svc, cfg)
		return
	}
	runTicker(ctx, svc, cfg)
}

func runTicker(ctx context.Context, svc *app.Services, cfg *config.Config) {
	sleep := cfg.Scheduler.Sleep()
	svc.Log.Info().Dur("interval", sleep).Msg("starting scheduler ticker loop")
	ticker := time.NewTicker(sleep)
	defer ticker.Stop()

	for {
		report, err := svc.Scheduler.RunCycle(ctx)
		if err != nil {
			svc.Log.Error().Err(err).Msg("staleness sweep failed")
		} else {
			svc.Log.Info().Int("considered", report.Considered).Int("enqueued", report.Enqueued).
				Int("skipped", report.Skipped).Msg("staleness sweep complete")
		}

		select {
		case <-ctx.Done():
			svc.Log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func runUnderTemporal(ctx context.Context, svc *app.Services, cfg *config.Config) {
	temporalClient, err := client.Dial(client.Options{HostPort: cfg.TemporalHostPort})
	if err != nil {
		log.Fatalf("failed to create temporal client: %v", err)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, scheduler.TaskQueue, worker.Options{})
	w.RegisterWorkflow(scheduler.StalenessSweepWorkflow)
	activities := &scheduler.Activities{Scheduler: svc.Scheduler}
	w.RegisterActivity(activities.SweepStaleVenuesActivity)

	if err := scheduleCron(ctx, temporalClient, cfg); err != nil {
		svc.Log.Error().Err(err).Msg("failed to ensure cron schedule, continuing with worker only")
	}

	svc.Log.Info().Str("task_queue", scheduler.TaskQueue).Msg("starting scheduler temporal worker")
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("temporal worker failed: %v", err)
	}
}

// scheduleCron ensures StalenessSweepWorkflow runs on a schedule, using
// SCHEDULER_SLEEP_SECONDS as the cron's effective period.
func scheduleCron(ctx context.Context, c client.Client, cfg *config.Config) error {
	_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: "geofacts-staleness-sweep",
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{
				{Every: cfg.Scheduler.Sleep()},
			},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "geofacts-staleness-sweep-run",
			Workflow:  scheduler.StalenessSweepWorkflow,
			TaskQueue: scheduler.TaskQueue,
		},
	})
	return err
}
