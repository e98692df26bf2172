package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/store"
)

func TestParseHoursTextRoundTrip(t *testing.T) {
	hours, ok := ParseHoursText("Mon-Fri 9am-5pm, Sat 10am-2pm")
	require.True(t, ok)
	require.Equal(t, []store.TimeRange{{Open: "09:00", Close: "17:00"}}, hours[store.Monday])
	require.Equal(t, []store.TimeRange{{Open: "09:00", Close: "17:00"}}, hours[store.Friday])
	require.Equal(t, []store.TimeRange{{Open: "10:00", Close: "14:00"}}, hours[store.Saturday])
	_, ok = hours[store.Sunday]
	require.False(t, ok)
}

func TestParseHoursTextNoMatch(t *testing.T) {
	_, ok := ParseHoursText("we are a lovely place to visit")
	require.False(t, ok)
}

func TestIntersectHoursTakesMoreRestrictiveOverlap(t *testing.T) {
	a := store.Hours{store.Monday: {{Open: "09:00", Close: "17:00"}}}
	b := store.Hours{store.Monday: {{Open: "10:00", Close: "16:00"}}}
	merged := IntersectHours(a, b)
	require.Equal(t, []store.TimeRange{{Open: "10:00", Close: "16:00"}}, merged[store.Monday])
}

func TestIntersectHoursDropsDayMissingFromEitherSide(t *testing.T) {
	a := store.Hours{store.Monday: {{Open: "09:00", Close: "17:00"}}}
	b := store.Hours{store.Tuesday: {{Open: "09:00", Close: "17:00"}}}
	merged := IntersectHours(a, b)
	require.Empty(t, merged)
}
