// Package app wires the enrichment pipeline's components into one
// Services struct, built once per process by each cmd/*/main.go. This
// replaces the teacher's reliance on package-level global state
// (internal/temporal/activities.SetGlobalStorage and its global
// hybridStorage var) with explicit dependency injection, since every
// component here (rate gate, downloader) carries per-process mutable
// state that must not leak across tests or be implicitly shared.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/geofacts/venues/internal/config"
	"github.com/geofacts/venues/internal/crawl"
	"github.com/geofacts/venues/internal/embed"
	"github.com/geofacts/venues/internal/extract"
	"github.com/geofacts/venues/internal/fetch"
	"github.com/geofacts/venues/internal/logging"
	"github.com/geofacts/venues/internal/ratelimit"
	"github.com/geofacts/venues/internal/scheduler"
	"github.com/geofacts/venues/internal/store"
	"github.com/geofacts/venues/internal/unify"
	"github.com/geofacts/venues/internal/workerpool"
)

// Services is the set of constructed, ready-to-use components every
// cmd/*/main.go assembles itself from, instead of reaching into
// package-level globals.
type Services struct {
	Config *config.Config
	Log    zerolog.Logger

	DB         *store.Store
	Gate       *ratelimit.Gate
	Downloader *fetch.Downloader
	Extractor  *extract.Extractor
	Unifier    *unify.Unifier

	Orchestrator *crawl.Orchestrator
	WorkerPool   *workerpool.Pool
	Scheduler    *scheduler.Scheduler
	Embedder     *embed.Producer
}

// New opens the database and constructs every component, logging with
// the teacher's zerolog conventions (console writer in development,
// JSON otherwise — internal/logging.Setup).
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	logFormat := "json"
	if cfg.AppEnv == "local" {
		logFormat = "pretty"
	}
	if err := logging.Setup(&logging.Config{Level: "info", Format: logFormat, Console: true}); err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	log := logging.Get("app")

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gateCfg := ratelimit.DefaultConfig()
	gateCfg.GlobalConcurrency = cfg.Crawl.GlobalConcurrency
	gateCfg.PerHostConcurrency = cfg.Crawl.PerHostConcurrency
	gate := ratelimit.New(gateCfg)
	downloader := fetch.New()
	extractor := extract.New()
	unifier := unify.New(db)

	orchestrator := &crawl.Orchestrator{
		DB:         db,
		Gate:       gate,
		Downloader: downloader,
		Search:     nil,
		Log:        log.With().Str("component", "orchestrator").Logger(),
	}

	pool := &workerpool.Pool{
		DB:           db,
		Orchestrator: orchestrator,
		Extractor:    extractor,
		Unifier:      unifier,
		Log:          log.With().Str("component", "workerpool").Logger(),
		Count:        cfg.Worker.Count,
		BatchSize:    cfg.Worker.BatchSize,
		Sleep:        cfg.Worker.Sleep(),
	}

	sched := &scheduler.Scheduler{
		DB: db,
		Config: scheduler.Config{
			BatchSize:              cfg.Scheduler.BatchSize,
			TopPercentile:          cfg.Scheduler.TopPercentile,
			MaxPerCategory:         scheduler.DefaultConfig().MaxPerCategory,
			HoursWindow:            daysToIntervalString(cfg.Fresh.HoursDays),
			MenuContactPriceWindow: daysToIntervalString(cfg.Fresh.MenuContactPriceDays),
			DescFeaturesWindow:     daysToIntervalString(cfg.Fresh.DescFeaturesDays),
		},
		Log: log.With().Str("component", "scheduler").Logger(),
	}

	embedder := embed.NewProducer(db)

	return &Services{
		Config:       cfg,
		Log:          log,
		DB:           db,
		Gate:         gate,
		Downloader:   downloader,
		Extractor:    extractor,
		Unifier:      unifier,
		Orchestrator: orchestrator,
		WorkerPool:   pool,
		Scheduler:    sched,
		Embedder:     embedder,
	}, nil
}

func (s *Services) Close() {
	s.DB.Close()
}

// daysToIntervalString renders a day count as a Postgres interval
// literal, for the staleness windows StaleVenues interpolates directly
// into its WHERE clause.
func daysToIntervalString(days int) string {
	return fmt.Sprintf("%d days", days)
}
