package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/geofacts/venues/internal/store"
)

const (
	defaultRadiusM = 1500
	maxRadiusM     = 100000
	minRadiusM     = 1
	defaultLimit   = 15
	maxLimit       = 30

	hoursFreshFor            = 3 * 24 * time.Hour
	menuContactPriceFreshFor = 14 * 24 * time.Hour
	descFeaturesFreshFor     = 30 * 24 * time.Hour

	realtimePriority = 100
)

// trackedFields lists the enrichment fields a result card reports
// freshness for, each mapped to the window it's considered fresh within.
var trackedFields = map[string]time.Duration{
	"hours":       hoursFreshFor,
	"contact":     menuContactPriceFreshFor,
	"menu":        menuContactPriceFreshFor,
	"price_range": menuContactPriceFreshFor,
	"fees":        menuContactPriceFreshFor,
	"description": descFeaturesFreshFor,
	"features":    descFeaturesFreshFor,
}

// Version is the build identifier reported by GET /health.
var Version = "dev"

// Handlers holds the dependencies the HTTP surface needs to serve
// /query, /scrape, and the health/readiness endpoints.
type Handlers struct {
	DB  *store.Store
	Log zerolog.Logger
}

func NewHandlers(db *store.Store, log zerolog.Logger) *Handlers {
	return &Handlers{DB: db, Log: log}
}

func badRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: detail})
}

func notFound(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Detail: detail})
}

func internalError(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: detail})
}

// Query handles POST /query: nearby-venue search with enrichment
// freshness reporting and realtime re-crawl enqueueing for stale or
// missing venues (spec §6).
func (h *Handlers) Query(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.RadiusM == 0 {
		req.RadiusM = defaultRadiusM
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}
	if req.RadiusM < minRadiusM || req.RadiusM > maxRadiusM {
		return badRequest(c, "radius_m must be between 1 and 100000")
	}
	if req.Limit < 1 || req.Limit > maxLimit {
		return badRequest(c, "limit must be between 1 and 30")
	}

	ctx := context.Background()
	venues, err := h.DB.NearbyVenues(ctx, req.Lat, req.Lon, req.RadiusM, req.Category, req.Limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("nearby venues query failed")
		return internalError(c, "query failed")
	}

	cards := make([]ResultCard, 0, len(venues))
	for _, v := range venues {
		card, err := h.buildCard(ctx, v)
		if err != nil {
			h.Log.Error().Err(err).Str("venue_id", v.ID).Msg("failed building result card")
			return internalError(c, "query failed")
		}
		cards = append(cards, card)
	}
	return c.JSON(cards)
}

// buildCard assembles one ResultCard: loads the enrichment row (if
// any), classifies each tracked field as missing/stale/fresh, and
// enqueues a realtime job whenever anything needs refreshing.
func (h *Handlers) buildCard(ctx context.Context, v store.GeoResult) (ResultCard, error) {
	card := ResultCard{
		VenueID:      v.ID,
		Name:         v.Name,
		CategoryName: v.CategoryName,
		Lat:          v.Lat,
		Lon:          v.Lon,
		DistanceM:    v.DistanceM,
		Popularity:   v.PopularityScore,
	}

	enr, err := h.DB.GetEnrichment(ctx, v.ID)
	if err != nil {
		return card, err
	}

	fresh := classifyFreshness(enr)
	card.Freshness = fresh
	card.Summary = summaryFor(enr)
	card.SourcesCount = sourcesCount(enr)

	needsRefresh := len(fresh.Missing) > 0 || len(fresh.Stale) > 0
	if needsRefresh {
		jobID, err := h.DB.Enqueue(ctx, v.ID, store.ModeRealtime, realtimePriority)
		if err != nil {
			h.Log.Error().Err(err).Str("venue_id", v.ID).Msg("failed to enqueue realtime job")
		} else {
			card.JobID = &jobID
		}
	}
	return card, nil
}

func classifyFreshness(enr *store.Enrichment) Freshness {
	f := Freshness{Missing: []string{}, Stale: []string{}, Fresh: []string{}}
	if enr == nil {
		for field := range trackedFields {
			f.Missing = append(f.Missing, field)
		}
		return f
	}
	f.LastEnrichedAt = lastEnrichedAtOf(enr)

	updatedAt := map[string]*time.Time{
		"hours":       enr.HoursUpdatedAt,
		"contact":     enr.ContactUpdatedAt,
		"menu":        enr.MenuUpdatedAt,
		"price_range": enr.PriceUpdatedAt,
		"fees":        enr.FeesUpdatedAt,
		"description": enr.DescriptionUpdatedAt,
		"features":    enr.FeaturesUpdatedAt,
	}
	present := map[string]bool{
		"hours":       enr.Hours != nil,
		"contact":     enr.Contact != nil,
		"menu":        enr.MenuURL != "" || len(enr.MenuItems) > 0,
		"price_range": enr.PriceRange != "",
		"fees":        enr.Fees != "" || enr.NotApplicable["fees"],
		"description": enr.Description != "",
		"features":    len(enr.Features) > 0,
	}

	for field, window := range trackedFields {
		if !present[field] {
			f.Missing = append(f.Missing, field)
			continue
		}
		ts := updatedAt[field]
		if ts == nil || time.Since(*ts) > window {
			f.Stale = append(f.Stale, field)
			continue
		}
		f.Fresh = append(f.Fresh, field)
	}
	return f
}

func lastEnrichedAtOf(enr *store.Enrichment) *time.Time {
	var latest *time.Time
	for _, ts := range []*time.Time{
		enr.HoursUpdatedAt, enr.ContactUpdatedAt, enr.DescriptionUpdatedAt,
		enr.FeaturesUpdatedAt, enr.MenuUpdatedAt, enr.PriceUpdatedAt, enr.AmenitiesUpdatedAt, enr.FeesUpdatedAt,
	} {
		if ts == nil {
			continue
		}
		if latest == nil || ts.After(*latest) {
			latest = ts
		}
	}
	return latest
}

func summaryFor(enr *store.Enrichment) string {
	if enr == nil {
		return ""
	}
	return enr.Description
}

func sourcesCount(enr *store.Enrichment) int {
	if enr == nil {
		return 0
	}
	seen := map[string]bool{}
	for _, urls := range enr.Sources {
		for _, u := range urls {
			seen[u] = true
		}
	}
	return len(seen)
}

// Scrape handles POST /scrape: enqueues one crawl job per requested
// venue_id and returns the resulting job_ids in the same order.
func (h *Handlers) Scrape(c *fiber.Ctx) error {
	var req ScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.VenueIDs) == 0 {
		return badRequest(c, "venue_ids must not be empty")
	}
	mode := store.JobMode(req.Mode)
	if mode != store.ModeRealtime && mode != store.ModeBackground {
		return badRequest(c, "mode must be realtime or background")
	}

	ctx := context.Background()
	jobIDs := make([]int64, 0, len(req.VenueIDs))
	for _, venueID := range req.VenueIDs {
		id, err := h.DB.Enqueue(ctx, venueID, mode, req.Priority)
		if err != nil {
			h.Log.Error().Err(err).Str("venue_id", venueID).Msg("failed to enqueue scrape job")
			return internalError(c, "failed to enqueue job")
		}
		jobIDs = append(jobIDs, id)
	}
	return c.JSON(ScrapeResponse{JobIDs: jobIDs})
}

// ScrapeStatus handles GET /scrape/{job_id}.
func (h *Handlers) ScrapeStatus(c *fiber.Ctx) error {
	idStr := c.Params("job_id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return badRequest(c, "job_id must be an integer")
	}

	job, err := h.DB.JobByID(context.Background(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(c, "unknown job")
	}
	if err != nil {
		h.Log.Error().Err(err).Int64("job_id", id).Msg("failed to load job")
		return internalError(c, "failed to load job")
	}

	return c.JSON(JobStatusResponse{
		JobID:      job.ID,
		State:      string(job.State),
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		Error:      job.Error,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := context.Background()
	dbOK := h.DB.Health(ctx) == nil

	depth, err := h.DB.Depth(ctx)
	queue := map[string]int{}
	if err == nil {
		for state, n := range depth {
			queue[string(state)] = n
		}
	}

	return c.JSON(HealthResponse{
		OK:         dbOK,
		DB:         dbOK,
		QueueDepth: queue,
		Version:    Version,
	})
}

// Ready handles GET /ready.
func (h *Handlers) Ready(c *fiber.Ctx) error {
	dbOK := h.DB.Health(context.Background()) == nil
	return c.JSON(ReadyResponse{
		Ready: dbOK,
		DB:    dbOK,
		Model: true,
	})
}
