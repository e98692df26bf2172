package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// GeoResult is one row of a NearbyVenues query, carrying the distance
// computed by PostGIS alongside the venue itself.
type GeoResult struct {
	Venue
	DistanceM float64
}

// NearbyVenues runs the geo search backing POST /query: venues within
// radiusM of (lat, lon), nearest first.
func (s *Store) NearbyVenues(ctx context.Context, lat, lon float64, radiusM int, category string, limit int) ([]GeoResult, error) {
	const q = `
SELECT id, name, coalesce(category_name, ''), category_weight,
       ST_Y(geog::geometry), ST_X(geog::geometry),
       coalesce(website, ''), popularity_score, last_enriched_at,
       ST_Distance(geog, ST_MakePoint($2, $1)::geography) AS distance_m
FROM venues
WHERE ST_DWithin(geog, ST_MakePoint($2, $1)::geography, $3)
  AND ($4 = '' OR category_name = $4)
ORDER BY distance_m ASC
LIMIT $5`

	rows, err := s.pool.Query(ctx, q, lat, lon, radiusM, category, limit)
	if err != nil {
		return nil, fmt.Errorf("nearby venues: %w", err)
	}
	defer rows.Close()

	var out []GeoResult
	for rows.Next() {
		var r GeoResult
		if err := rows.Scan(&r.ID, &r.Name, &r.CategoryName, &r.CategoryWeight,
			&r.Lat, &r.Lon, &r.Website, &r.PopularityScore, &r.LastEnrichedAt,
			&r.DistanceM); err != nil {
			return nil, fmt.Errorf("scan venue row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetVenue loads a single venue by ID, including the website-recovery
// seed fields the Crawler Orchestrator needs (spec §4.5 step 1).
func (s *Store) GetVenue(ctx context.Context, id string) (*Venue, error) {
	const q = `
SELECT id, name, coalesce(category_name, ''), category_weight,
       ST_Y(geog::geometry), ST_X(geog::geometry),
       coalesce(website, ''), popularity_score, last_enriched_at, coalesce(seed_email, ''), social_urls
FROM venues WHERE id = $1`

	var v Venue
	var socialURLs []byte
	err := s.pool.QueryRow(ctx, q, id).Scan(&v.ID, &v.Name, &v.CategoryName, &v.CategoryWeight,
		&v.Lat, &v.Lon, &v.Website, &v.PopularityScore, &v.LastEnrichedAt, &v.SeedEmail, &socialURLs)
	if err != nil {
		return nil, fmt.Errorf("get venue %s: %w", id, err)
	}
	if len(socialURLs) > 0 {
		if err := json.Unmarshal(socialURLs, &v.SocialURLs); err != nil {
			return nil, fmt.Errorf("unmarshal social urls: %w", err)
		}
	}
	return &v, nil
}

// SetWebsite is called by the Crawler Orchestrator's website-recovery
// step (spec §4.5 step 1) once a candidate has been chosen.
func (s *Store) SetWebsite(ctx context.Context, venueID, website string) error {
	_, err := s.pool.Exec(ctx, `UPDATE venues SET website = $2 WHERE id = $1`, venueID, website)
	return err
}

// TouchLastEnriched sets last_enriched_at; normally folded into the
// Unifier's single commit (see unify.Apply) but exposed here for jobs
// that complete with zero new facts.
func (s *Store) TouchLastEnriched(ctx context.Context, venueID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE venues SET last_enriched_at = now() WHERE id = $1`, venueID)
	return err
}

// StaleVenue is a row selected by the Scheduler's staleness sweep.
type StaleVenue struct {
	Venue
	AnyFieldStale bool
}

// StaleVenues returns up to limit venues with at least one stale field,
// or no enrichment row at all, ordered by popularity (nulls last) so
// the caller can apply the top-percentile boost of spec §4.8 step 2.
func (s *Store) StaleVenues(ctx context.Context, hoursWindow, menuContactPriceWindow, descFeaturesWindow string, limit int) ([]StaleVenue, error) {
	const q = `
SELECT v.id, v.name, coalesce(v.category_name, ''), v.category_weight,
       ST_Y(v.geog::geometry), ST_X(v.geog::geometry),
       coalesce(v.website, ''), v.popularity_score, v.last_enriched_at
FROM venues v
LEFT JOIN enrichment e ON e.venue_id = v.id
WHERE e.venue_id IS NULL
   OR e.hours_updated_at IS NULL OR e.hours_updated_at < now() - $1::interval
   OR e.contact_updated_at IS NULL OR e.contact_updated_at < now() - $2::interval
   OR e.price_updated_at IS NULL OR e.price_updated_at < now() - $2::interval
   OR e.description_updated_at IS NULL OR e.description_updated_at < now() - $3::interval
   OR e.features_updated_at IS NULL OR e.features_updated_at < now() - $3::interval
ORDER BY v.popularity_score DESC NULLS LAST
LIMIT $4`

	rows, err := s.pool.Query(ctx, q, hoursWindow, menuContactPriceWindow, descFeaturesWindow, limit)
	if err != nil {
		return nil, fmt.Errorf("stale venues: %w", err)
	}
	defer rows.Close()

	var out []StaleVenue
	for rows.Next() {
		var v StaleVenue
		if err := rows.Scan(&v.ID, &v.Name, &v.CategoryName, &v.CategoryWeight,
			&v.Lat, &v.Lon, &v.Website, &v.PopularityScore, &v.LastEnrichedAt); err != nil {
			return nil, fmt.Errorf("scan stale venue: %w", err)
		}
		v.AnyFieldStale = true
		out = append(out, v)
	}
	return out, rows.Err()
}
