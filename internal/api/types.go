// Package api implements the HTTP query/scrape/health surface (spec
// §6 "collaborator, not core — specified for contract only"), built on
// gofiber/fiber/v2 the way the teacher's cmd/server/main.go and
// internal/api/handlers.go wire up their routes and middleware.
package api

import "time"

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Query    string  `json:"query"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusM  int     `json:"radius_m"`
	Limit    int     `json:"limit"`
	Category string  `json:"category,omitempty"`
}

// Freshness reports which fields are missing, stale, or fresh for a
// result card (spec §6).
type Freshness struct {
	Missing        []string   `json:"missing"`
	Stale          []string   `json:"stale"`
	Fresh          []string   `json:"fresh"`
	LastEnrichedAt *time.Time `json:"last_enriched_at"`
}

// ResultCard is one entry in the POST /query response array.
type ResultCard struct {
	VenueID      string    `json:"venue_id"`
	Name         string    `json:"name"`
	CategoryName string    `json:"category_name"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	DistanceM    float64   `json:"distance_m"`
	Popularity   *float64  `json:"popularity"`
	Freshness    Freshness `json:"freshness"`
	SourcesCount int       `json:"sources_count"`
	Summary      string    `json:"summary"`
	JobID        *int64    `json:"job_id,omitempty"`
}

// ScrapeRequest is the POST /scrape body.
type ScrapeRequest struct {
	VenueIDs []string `json:"venue_ids"`
	Mode     string   `json:"mode"`
	Priority int      `json:"priority"`
}

// ScrapeResponse is the POST /scrape response.
type ScrapeResponse struct {
	JobIDs []int64 `json:"job_ids"`
}

// JobStatusResponse is the GET /scrape/{job_id} response.
type JobStatusResponse struct {
	JobID         int64      `json:"job_id"`
	State         string     `json:"state"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	Error         string     `json:"error,omitempty"`
	UpdatedFields []string   `json:"updated_fields,omitempty"`
}

// HealthResponse is the GET /health response.
type HealthResponse struct {
	OK         bool           `json:"ok"`
	DB         bool           `json:"db"`
	QueueDepth map[string]int `json:"queue_depth"`
	Version    string         `json:"version"`
}

// ReadyResponse is the GET /ready response.
type ReadyResponse struct {
	Ready bool `json:"ready"`
	DB    bool `json:"db"`
	Model bool `json:"model"`
}

// ErrorResponse is the JSON error body for 4xx/5xx responses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
