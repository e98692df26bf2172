package workerpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/store"
)

func TestDedupeByVenueKeepsFirstAndFlagsRest(t *testing.T) {
	jobs := []store.CrawlJob{
		{ID: 1, VenueID: "v1"},
		{ID: 2, VenueID: "v2"},
		{ID: 3, VenueID: "v1"},
		{ID: 4, VenueID: "v1"},
	}
	unique, duplicates := dedupeByVenue(jobs)

	require.Len(t, unique, 2)
	require.Equal(t, int64(1), unique[0].ID)
	require.Equal(t, int64(2), unique[1].ID)
	require.Equal(t, []int64{3, 4}, duplicates)
}

func TestDedupeByVenueNoDuplicates(t *testing.T) {
	jobs := []store.CrawlJob{{ID: 1, VenueID: "v1"}, {ID: 2, VenueID: "v2"}}
	unique, duplicates := dedupeByVenue(jobs)
	require.Len(t, unique, 2)
	require.Empty(t, duplicates)
}
