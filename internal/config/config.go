// Package config loads the service's environment configuration into a
// single struct, constructed once at process startup and passed through
// constructors (see internal/app.Services) rather than read ad-hoc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete, typed view of the environment variables listed
// in spec §6.
type Config struct {
	DatabaseURL string
	AppEnv      string // local, staging, prod

	Query QueryConfig
	Crawl CrawlConfig
	Fresh FreshnessConfig

	Worker    WorkerConfig
	Scheduler SchedulerConfig

	TemporalHostPort string // empty disables Temporal integration
	Port             string
}

type QueryConfig struct {
	DefaultRadiusM int
	MaxResults     int
}

type CrawlConfig struct {
	GlobalConcurrency  int
	PerHostConcurrency int
	BudgetMS           int
	PageSizeLimit      int64
}

func (c CrawlConfig) Budget() time.Duration {
	return time.Duration(c.BudgetMS) * time.Millisecond
}

type FreshnessConfig struct {
	HoursDays            int
	MenuContactPriceDays int
	DescFeaturesDays     int
}

func (f FreshnessConfig) HoursWindow() time.Duration {
	return time.Duration(f.HoursDays) * 24 * time.Hour
}

func (f FreshnessConfig) MenuContactPriceWindow() time.Duration {
	return time.Duration(f.MenuContactPriceDays) * 24 * time.Hour
}

func (f FreshnessConfig) DescFeaturesWindow() time.Duration {
	return time.Duration(f.DescFeaturesDays) * 24 * time.Hour
}

type WorkerConfig struct {
	Count         int
	BatchSize     int
	SleepSeconds  int
}

func (w WorkerConfig) Sleep() time.Duration {
	return time.Duration(w.SleepSeconds) * time.Second
}

type SchedulerConfig struct {
	SleepSeconds   int
	BatchSize      int
	TopPercentile  float64
}

func (s SchedulerConfig) Sleep() time.Duration {
	return time.Duration(s.SleepSeconds) * time.Second
}

// Load reads a .env file if present (ignored if missing) and builds a
// Config from the process environment, applying the defaults documented
// in spec §6.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		DatabaseURL: dbURL,
		AppEnv:      getEnv("APP_ENV", "local"),

		Query: QueryConfig{
			DefaultRadiusM: getEnvInt("QUERY_DEFAULT_RADIUS_M", 1500),
			MaxResults:     getEnvInt("QUERY_MAX_RESULTS", 30),
		},
		Crawl: CrawlConfig{
			GlobalConcurrency:  getEnvInt("CRAWL_GLOBAL_CONCURRENCY", 32),
			PerHostConcurrency: getEnvInt("CRAWL_PER_HOST_CONCURRENCY", 2),
			BudgetMS:           getEnvInt("CRAWL_BUDGET_MS", 5000),
			PageSizeLimit:      getEnvInt64("CRAWL_PAGE_SIZE_LIMIT_BYTES", 2_000_000),
		},
		Fresh: FreshnessConfig{
			HoursDays:            getEnvInt("FRESH_HOURS_DAYS", 3),
			MenuContactPriceDays: getEnvInt("FRESH_MENU_CONTACT_PRICE_DAYS", 14),
			DescFeaturesDays:     getEnvInt("FRESH_DESC_FEATURES_DAYS", 30),
		},
		Worker: WorkerConfig{
			Count:        getEnvInt("WORKER_COUNT", 1),
			BatchSize:    getEnvInt("WORKER_BATCH_SIZE", 8),
			SleepSeconds: getEnvInt("WORKER_SLEEP_SECONDS", 1),
		},
		Scheduler: SchedulerConfig{
			SleepSeconds:  getEnvInt("SCHEDULER_SLEEP_SECONDS", 300),
			BatchSize:     getEnvInt("SCHEDULER_BATCH_SIZE", 50),
			TopPercentile: getEnvFloat("SCHEDULER_TOP_PERCENTILE", 0.9),
		},
		TemporalHostPort: os.Getenv("TEMPORAL_HOST"),
		Port:             getEnv("PORT", "8080"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}
