package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/geofacts/venues/internal/fetch"
	"github.com/geofacts/venues/internal/linkfind"
	"github.com/geofacts/venues/internal/ratelimit"
	"github.com/geofacts/venues/internal/store"
)

// JobBudget is the hard wall-clock budget for one venue's crawl (spec §4.5).
const JobBudget = 5000 * time.Millisecond

// maxInFlightTargets bounds target-page parallelism (spec §4.5 step 4).
const maxInFlightTargets = 3

var validUntilByType = map[store.PageType]time.Duration{
	store.PageHomepage: 30 * 24 * time.Hour,
	store.PageHours:     3 * 24 * time.Hour,
	store.PageMenu:      14 * 24 * time.Hour,
	store.PageContact:   14 * 24 * time.Hour,
	store.PageFees:      14 * 24 * time.Hour,
	store.PageAbout:     30 * 24 * time.Hour,
	store.PageOther:     30 * 24 * time.Hour,
}

// Report is the per-job telemetry the orchestrator exposes (spec §4.5
// "Observable telemetry per job").
type Report struct {
	StartedAt    time.Time
	EndedAt      time.Time
	DurationMS   int64
	FetchedCount int
	AbortedCount int
	Pages        []store.ScrapedPage
	PartialOK    bool // true if at least one page passed the quality gate
	FailReason   string
}

// Orchestrator runs the website-recovery -> homepage -> target-discovery
// -> target-fetch -> budget-enforcement flow for one venue (spec §4.5).
type Orchestrator struct {
	DB         *store.Store
	Gate       *ratelimit.Gate
	Downloader *fetch.Downloader
	Search     SearchProvider
	Log        zerolog.Logger
}

// Run executes the orchestrator for one venue under JobBudget.
func (o *Orchestrator) Run(ctx context.Context, v *store.Venue) (*Report, error) {
	deadline := time.Now().Add(JobBudget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	report := &Report{StartedAt: time.Now()}
	defer func() {
		report.EndedAt = time.Now()
		report.DurationMS = report.EndedAt.Sub(report.StartedAt).Milliseconds()
	}()

	if v.Website == "" {
		chosen, err := RecoverWebsite(ctx, o.DB, v, o.Search)
		if err != nil {
			report.FailReason = string(fetch.ReasonNoWebsite)
			return report, err
		}
		v.Website = chosen
	}

	homepagePF, homepageErr := o.fetchAndPersist(ctx, v.ID, v.Website, store.PageHomepage, store.DiscoveryDirectURL, report, deadline)
	if homepageErr != nil {
		report.FailReason = reasonOf(homepageErr)
		return report, nil // total failure: no page passed the gate
	}
	report.PartialOK = true

	candidates, err := linkfind.Find(v.Website, homepagePF.RawHTML)
	if err != nil {
		o.Log.Warn().Err(err).Str("venue_id", v.ID).Msg("link discovery failed")
		candidates = nil
	}

	o.fetchTargets(ctx, v.ID, candidates, report, deadline)

	return report, nil
}

func (o *Orchestrator) fetchTargets(ctx context.Context, venueID string, candidates []linkfind.Candidate, report *Report, deadline time.Time) {
	sem := make(chan struct{}, maxInFlightTargets)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, c := range candidates {
		if remaining := time.Until(deadline); remaining < fetch.MinFetchDuration {
			mu.Lock()
			report.AbortedCount++
			mu.Unlock()
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(c linkfind.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := o.fetchAndPersistLocked(ctx, venueID, c.URL, c.PageType, store.DiscoveryHeuristic, report, deadline, &mu)
			if err != nil {
				mu.Lock()
				report.AbortedCount++
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
}

func (o *Orchestrator) fetchAndPersist(ctx context.Context, venueID, url string, pt store.PageType, disc store.DiscoveryMethod, report *Report, deadline time.Time) (*fetch.PageFetch, error) {
	var mu sync.Mutex
	return o.fetchAndPersistLocked(ctx, venueID, url, pt, disc, report, deadline, &mu)
}

// maxRetries is the "at most 2 additional attempts" of spec §4.3.
const maxRetries = 2

func (o *Orchestrator) fetchAndPersistLocked(ctx context.Context, venueID, rawURL string, pt store.PageType, disc store.DiscoveryMethod, report *Report, deadline time.Time, mu *sync.Mutex) (*fetch.PageFetch, error) {
	pf, err := o.fetchWithRetries(ctx, rawURL, deadline)
	if err != nil {
		return nil, err
	}

	if !fetch.PassesQualityGate(pf.CleanText) {
		return nil, fetch.NewError(fetch.ReasonThinContent, nil)
	}

	validUntil := time.Now().Add(validUntilByType[pt])
	page := &store.ScrapedPage{
		VenueID: venueID, URL: pf.FinalURL, PageType: pt, FetchedAt: time.Now(),
		ValidUntil: &validUntil, HTTPStatus: pf.StatusCode, ContentType: pf.ContentType,
		ContentHash: fetch.ContentHash(pf.CleanText), CleanText: pf.CleanText, RawHTML: pf.RawHTML, Discovery: disc,
		RedirectChain: pf.RedirectChain, SizeBytes: pf.BodyBytes, TotalMS: pf.TotalMS, FirstByteMS: pf.FirstByteMS,
	}
	saved, err := o.DB.SavePage(ctx, page)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	report.FetchedCount++
	report.Pages = append(report.Pages, *saved)
	mu.Unlock()

	return pf, nil
}

// fetchWithRetries attempts one fetch, then up to maxRetries more for
// transient reasons only, through the Rate Gate's backoff schedule
// (spec §4.3 "Retries: transient classes only ... at most 2 additional
// attempts through the Rate Gate's backoff").
func (o *Orchestrator) fetchWithRetries(ctx context.Context, rawURL string, deadline time.Time) (*fetch.PageFetch, error) {
	host, hostErr := ratelimit.RegisteredDomain(rawURL)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if time.Until(deadline) < fetch.MinFetchDuration {
			return nil, fetch.NewError(fetch.ReasonTimeBudgetExceeded, lastErr)
		}

		release, err := o.Gate.Acquire(ctx, rawURL)
		if err != nil {
			return nil, fetch.NewError(fetch.ReasonTimeBudgetExceeded, err)
		}

		pf, fetchErr := o.Downloader.Fetch(ctx, rawURL)
		release()

		if fetchErr == nil {
			if hostErr == nil {
				o.Gate.RecordSuccess(host)
			}
			return pf, nil
		}

		lastErr = fetchErr
		fe, isFetchErr := fetchErr.(*fetch.FetchError)
		if !isFetchErr || !fe.Reason.Retryable() {
			return nil, fetchErr
		}
		if hostErr == nil {
			o.Gate.RecordTransientFailure(host)
		}
	}
	return nil, lastErr
}

func reasonOf(err error) string {
	if fe, ok := err.(*fetch.FetchError); ok {
		return string(fe.Reason)
	}
	return err.Error()
}
