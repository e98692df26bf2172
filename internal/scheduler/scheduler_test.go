package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/store"
)

func f(v float64) *float64 { return &v }

func TestBoostTopPercentileOrdersHighPopularityFirst(t *testing.T) {
	venues := []store.StaleVenue{
		{Venue: store.Venue{ID: "low", PopularityScore: f(0.1)}},
		{Venue: store.Venue{ID: "high", PopularityScore: f(0.95)}},
		{Venue: store.Venue{ID: "mid", PopularityScore: f(0.5)}},
		{Venue: store.Venue{ID: "none", PopularityScore: nil}},
	}
	out := boostTopPercentile(venues, 0.9)
	require.Equal(t, "high", out[0].ID)
	require.Equal(t, "none", out[len(out)-1].ID)
}

func TestPriorityFromPopularityNeverReachesRealtime(t *testing.T) {
	require.Less(t, priorityFromPopularity(f(10)), realtimePriority)
	require.Equal(t, 1, priorityFromPopularity(nil))
	require.Greater(t, priorityFromPopularity(f(1)), priorityFromPopularity(f(0.1)))
}
