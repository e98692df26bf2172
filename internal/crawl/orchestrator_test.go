package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/fetch"
	"github.com/geofacts/venues/internal/linkfind"
	"github.com/geofacts/venues/internal/ratelimit"
	"github.com/geofacts/venues/internal/store"
)

// TestFetchTargetsAbortsWhenBudgetExhausted exercises spec §4.5 step 5:
// once remaining budget falls below the minimum fetch duration, targets
// are aborted rather than attempted. This never touches the DB.
func TestFetchTargetsAbortsWhenBudgetExhausted(t *testing.T) {
	o := &Orchestrator{
		Gate:       ratelimit.New(ratelimit.DefaultConfig()),
		Downloader: fetch.New(),
		Log:        zerolog.Nop(),
	}
	report := &Report{}
	deadline := time.Now().Add(-1 * time.Second) // already exhausted

	candidates := []linkfind.Candidate{
		{URL: "https://v.example/hours", PageType: store.PageHours},
		{URL: "https://v.example/menu", PageType: store.PageMenu},
	}
	o.fetchTargets(context.Background(), "v1", candidates, report, deadline)

	require.Equal(t, 2, report.AbortedCount)
	require.Equal(t, 0, report.FetchedCount)
}
