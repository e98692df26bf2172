package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "APP_ENV", "QUERY_DEFAULT_RADIUS_M", "CRAWL_GLOBAL_CONCURRENCY",
		"WORKER_COUNT", "SCHEDULER_TOP_PERCENTILE", "TEMPORAL_HOST",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesSpecDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1500, cfg.Query.DefaultRadiusM)
	require.Equal(t, 30, cfg.Query.MaxResults)
	require.Equal(t, 32, cfg.Crawl.GlobalConcurrency)
	require.Equal(t, 2, cfg.Crawl.PerHostConcurrency)
	require.Equal(t, 1, cfg.Worker.Count)
	require.Equal(t, 0.9, cfg.Scheduler.TopPercentile)
	require.Equal(t, "", cfg.TemporalHostPort)
}

func TestLoadHonorsOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("WORKER_COUNT", "4")
	defer os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("WORKER_COUNT")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Worker.Count)
}

func TestCrawlBudgetConvertsMillisecondsToDuration(t *testing.T) {
	c := CrawlConfig{BudgetMS: 5000}
	require.Equal(t, 5000000000.0, float64(c.Budget()))
}
