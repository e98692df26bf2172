// Package workerpool implements the Worker Pool (C9, spec §4.9): a
// fixed number of workers that each loop claim -> orchestrate ->
// extract -> unify -> complete, deduplicating by venue within a batch
// and honoring cooperative shutdown. Grounded on the teacher's
// CrawlWorker loop (internal/procurement/scraping/crawler.go),
// generalized from a crawl-frontier consumer to this spec's job-queue
// consumer.
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/geofacts/venues/internal/crawl"
	"github.com/geofacts/venues/internal/extract"
	"github.com/geofacts/venues/internal/store"
	"github.com/geofacts/venues/internal/unify"
)

// Pool runs Count workers against the job queue.
type Pool struct {
	DB           *store.Store
	Orchestrator *crawl.Orchestrator
	Extractor    *extract.Extractor
	Unifier      *unify.Unifier
	Log          zerolog.Logger

	Count     int
	BatchSize int
	Sleep     time.Duration
}

// Run blocks until ctx is canceled, then lets in-flight jobs finish
// before returning (spec §4.9 "Workers honor a shutdown signal").
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.Count; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.Log.With().Int("worker_id", workerID).Logger()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker shutting down")
			return
		default:
		}

		jobs, err := p.DB.Claim(ctx, p.BatchSize)
		if err != nil {
			log.Error().Err(err).Msg("claim failed")
			sleepOrDone(ctx, p.Sleep)
			continue
		}
		if len(jobs) == 0 {
			sleepOrDone(ctx, p.Sleep)
			continue
		}

		unique, duplicates := dedupeByVenue(jobs)
		for _, jobID := range duplicates {
			// spec §4.9: "if the same venue appears twice, the second
			// completion is a no-op success".
			_ = p.DB.Complete(ctx, jobID, true, "")
		}
		for _, job := range unique {
			p.runJob(ctx, log, job)
		}
	}
}

// dedupeByVenue splits a claimed batch into the first job seen per
// venue and the IDs of any later duplicates (spec §4.9 "Workers
// deduplicate by venue within the current batch").
func dedupeByVenue(jobs []store.CrawlJob) (unique []store.CrawlJob, duplicateIDs []int64) {
	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if seen[job.VenueID] {
			duplicateIDs = append(duplicateIDs, job.ID)
			continue
		}
		seen[job.VenueID] = true
		unique = append(unique, job)
	}
	return unique, duplicateIDs
}

func (p *Pool) runJob(ctx context.Context, log zerolog.Logger, job store.CrawlJob) {
	jobLog := log.With().Int64("job_id", job.ID).Str("venue_id", job.VenueID).Logger()

	defer func() {
		if r := recover(); r != nil {
			jobLog.Error().Interface("panic", r).Msg("job panicked")
			_ = p.DB.Complete(ctx, job.ID, false, "worker_panic")
		}
	}()

	venue, err := p.DB.GetVenue(ctx, job.VenueID)
	if err != nil {
		jobLog.Error().Err(err).Msg("load venue failed")
		_ = p.DB.Complete(ctx, job.ID, false, "venue_not_found")
		return
	}

	report, err := p.Orchestrator.Run(ctx, venue)
	if err != nil && report != nil && !report.PartialOK {
		jobLog.Warn().Str("reason", report.FailReason).Msg("crawl failed")
		if applyErr := p.Unifier.Apply(ctx, job.ID, job.VenueID, nil, false, report.FailReason); applyErr != nil {
			jobLog.Error().Err(applyErr).Msg("unify failed after crawl failure")
		}
		return
	}

	// Include historical pages within TTL alongside this crawl's pages
	// (spec §4.6 "plus historical pages within their TTL").
	pages, err := p.DB.PagesForVenue(ctx, job.VenueID)
	if err != nil {
		jobLog.Error().Err(err).Msg("load pages for extraction failed")
		pages = report.Pages
	}

	results := p.Extractor.Extract(pages)

	ok := report.PartialOK
	errMsg := ""
	if !ok {
		errMsg = report.FailReason
	}
	if err := p.Unifier.Apply(ctx, job.ID, job.VenueID, results, ok, errMsg); err != nil {
		jobLog.Error().Err(err).Msg("unify failed")
		_ = p.DB.Complete(ctx, job.ID, false, "unify_error")
		return
	}

	jobLog.Info().
		Int("fetched", report.FetchedCount).
		Int("aborted", report.AbortedCount).
		Int64("duration_ms", report.DurationMS).
		Msg("job completed")
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
