// Package scheduler implements the Scheduler (C10, spec §4.8): the
// periodic staleness sweep that selects stale venues, boosts top-
// popularity ones, applies a per-category quota, and enqueues
// background jobs with popularity-derived priority. There is no
// per-area quota.
package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/geofacts/venues/internal/store"
)

// realtimePriority is the ceiling background priority must never reach
// (spec §4.8 step 4: "never exceeding realtime priority").
const realtimePriority = 100

// Config configures one sweep cycle (spec §4.8).
type Config struct {
	BatchSize        int
	TopPercentile    float64 // default 0.9
	MaxPerCategory   int     // 0 disables the quota
	HoursWindow            string
	MenuContactPriceWindow string
	DescFeaturesWindow     string
}

// DefaultConfig matches spec §4.8's numbers.
func DefaultConfig() Config {
	return Config{
		BatchSize:      50,
		TopPercentile:  0.9,
		MaxPerCategory: 15,
	}
}

// CycleReport summarizes one RunCycle invocation.
type CycleReport struct {
	Considered int
	Enqueued   int
	Skipped    int // dropped by the per-category quota
}

// Scheduler runs the periodic staleness sweep.
type Scheduler struct {
	DB     *store.Store
	Config Config
	Log    zerolog.Logger
}

// RunCycle runs one sweep: it selects stale venues, boosts the top
// popularity percentile, applies the per-category quota, and enqueues
// background jobs.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleReport, error) {
	candidates, err := s.DB.StaleVenues(ctx, s.Config.HoursWindow, s.Config.MenuContactPriceWindow, s.Config.DescFeaturesWindow, s.Config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("select stale venues: %w", err)
	}

	boosted := boostTopPercentile(candidates, s.Config.TopPercentile)

	report := &CycleReport{Considered: len(boosted)}
	categoryCounts := map[string]int{}

	for _, v := range boosted {
		if s.Config.MaxPerCategory > 0 && categoryCounts[v.CategoryName] >= s.Config.MaxPerCategory {
			report.Skipped++
			continue
		}
		categoryCounts[v.CategoryName]++

		priority := priorityFromPopularity(v.PopularityScore)
		if _, err := s.DB.Enqueue(ctx, v.ID, store.ModeBackground, priority); err != nil {
			s.Log.Error().Err(err).Str("venue_id", v.ID).Msg("enqueue background job failed")
			continue
		}
		report.Enqueued++
	}

	s.Log.Info().Int("considered", report.Considered).Int("enqueued", report.Enqueued).Int("skipped", report.Skipped).Msg("staleness sweep complete")
	return report, nil
}

// boostTopPercentile reorders candidates so the top TopPercentile by
// popularity_score are considered first, always included ahead of the
// per-category quota cut (spec §4.8 step 2).
func boostTopPercentile(venues []store.StaleVenue, percentile float64) []store.StaleVenue {
	if len(venues) == 0 {
		return venues
	}
	sorted := make([]store.StaleVenue, len(venues))
	copy(sorted, venues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreOf(sorted[i]) > scoreOf(sorted[j])
	})

	cut := int(float64(len(sorted)) * (1 - percentile))
	if cut < 0 {
		cut = 0
	}
	if cut > len(sorted) {
		cut = len(sorted)
	}
	top := sorted[:cut]
	rest := sorted[cut:]
	return append(append([]store.StaleVenue{}, top...), rest...)
}

func scoreOf(v store.StaleVenue) float64 {
	if v.PopularityScore == nil {
		return -1 // spec §9: nil sorts lowest, never as a mid-value
	}
	return *v.PopularityScore
}

// priorityFromPopularity derives a background priority tier from
// popularity (spec §4.8 step 4: "priority tier derived from popularity
// (higher popularity → higher priority), never exceeding realtime
// priority").
func priorityFromPopularity(score *float64) int {
	if score == nil {
		return 1
	}
	p := int(*score * 50)
	if p < 1 {
		p = 1
	}
	if p >= realtimePriority {
		p = realtimePriority - 1
	}
	return p
}
