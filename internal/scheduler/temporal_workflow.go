package scheduler

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the Temporal task queue the scheduler's cron workflow
// and activity run on.
const TaskQueue = "geofacts-scheduler"

// StalenessSweepWorkflow is registered with the Temporal worker in
// cmd/scheduler; the workflow itself is started with a cron schedule
// (spec §4.8 "Periodic loop"), grounded on the teacher's
// ScheduledIngestionWorkflow (internal/temporal/workflows/scheduled_ingestion.go).
func StalenessSweepWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var report CycleReport
	err := workflow.ExecuteActivity(ctx, SweepStaleVenuesActivityName).Get(ctx, &report)
	if err != nil {
		logger.Error("staleness sweep activity failed", "error", err)
		return err
	}
	logger.Info("staleness sweep cycle complete", "enqueued", report.Enqueued, "skipped", report.Skipped)
	return nil
}

// SweepStaleVenuesActivityName is the registered activity name invoked
// by StalenessSweepWorkflow.
const SweepStaleVenuesActivityName = "SweepStaleVenuesActivity"

// Activities bundles the Scheduler as a Temporal activity receiver so
// cmd/scheduler can register SweepStaleVenuesActivity against a worker
// sharing the same *Scheduler used by the non-Temporal ticker path.
type Activities struct {
	Scheduler *Scheduler
}

// SweepStaleVenuesActivity runs one RunCycle, invoked by the Temporal
// workflow above. When TEMPORAL_HOST is unset, cmd/scheduler's ticker
// loop calls RunCycle directly instead of this activity.
func (a *Activities) SweepStaleVenuesActivity(ctx context.Context) (*CycleReport, error) {
	activity.RecordHeartbeat(ctx, "sweeping stale venues")
	return a.Scheduler.RunCycle(ctx)
}
