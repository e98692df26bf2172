package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// FieldUpdate is one field's worth of extracted facts, ready to be
// folded into an Enrichment row by the Unifier (spec §4.7). Exactly one
// of Value/NotApplicable applies; Sources is always required when
// either is set.
type FieldUpdate struct {
	Field         string // hours, contact, description, features, menu_url, menu_items, price_range, amenities, fees
	Value         any
	NotApplicable bool
	Sources       []string
	UpdatedAt     time.Time
}

// fieldColumns maps a logical field name to its value column and
// updated_at column in the enrichment table.
var fieldColumns = map[string][2]string{
	"hours":       {"hours", "hours_updated_at"},
	"contact":     {"contact", "contact_updated_at"},
	"description": {"description", "description_updated_at"},
	"features":    {"features", "features_updated_at"},
	"menu_url":    {"menu_url", "menu_updated_at"},
	"menu_items":  {"menu_items", "menu_updated_at"},
	"price_range": {"price_range", "price_updated_at"},
	"amenities":   {"amenities", "amenities_updated_at"},
	"fees":        {"fees", "fees_updated_at"},
}

// jsonbFields are columns stored as JSONB rather than scalar TEXT.
var jsonbFields = map[string]bool{
	"hours": true, "contact": true, "features": true, "menu_items": true, "amenities": true,
}

// BeginTx starts a transaction; the Unifier uses one transaction per
// job so enrichment writes, last_enriched_at, and job completion commit
// atomically (spec §4.7 "Atomicity").
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

// EnsureEnrichmentRow makes sure a venue has an enrichment row to
// upsert into (idempotent no-op otherwise).
func (s *Store) EnsureEnrichmentRow(ctx context.Context, tx pgx.Tx, venueID string) error {
	_, err := tx.Exec(ctx, `INSERT INTO enrichment (venue_id) VALUES ($1) ON CONFLICT (venue_id) DO NOTHING`, venueID)
	return err
}

// ApplyFieldUpdate upserts one field's value/timestamp and appends its
// sources as a deduplicated, order-preserving union (spec §4.7, §5
// "sources is an append-dedup union"). Untouched fields are never
// touched by this statement — partial updates never clobber (spec
// §4.7).
func (s *Store) ApplyFieldUpdate(ctx context.Context, tx pgx.Tx, venueID string, u FieldUpdate) error {
	cols, ok := fieldColumns[u.Field]
	if !ok {
		return fmt.Errorf("unknown enrichment field %q", u.Field)
	}
	valCol, tsCol := cols[0], cols[1]

	var valueArg any
	if u.NotApplicable {
		valueArg = nil
	} else if jsonbFields[u.Field] {
		b, err := json.Marshal(u.Value)
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", u.Field, err)
		}
		valueArg = b
	} else {
		valueArg = u.Value
	}

	naPatch, err := json.Marshal(map[string]bool{u.Field: u.NotApplicable})
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`
UPDATE enrichment SET
  %s = $2,
  %s = $3,
  not_applicable = not_applicable || $4::jsonb,
  sources = jsonb_set(sources, ARRAY[$1::text], to_jsonb(
      (
        SELECT coalesce(jsonb_agg(x ORDER BY pos), '[]'::jsonb)
        FROM (
          SELECT x, min(pos) AS pos
          FROM (
            SELECT x, ord AS pos FROM jsonb_array_elements_text(coalesce(sources->$1, '[]'::jsonb)) WITH ORDINALITY AS prev(x, ord)
            UNION ALL
            SELECT x, 1000000000 + ord FROM unnest($5::text[]) WITH ORDINALITY AS added(x, ord)
          ) merged
          GROUP BY x
        ) dedup
      )
  ), true)
WHERE venue_id = $6`, valCol, tsCol)

	_, err = tx.Exec(ctx, q, u.Field, valueArg, u.UpdatedAt, naPatch, u.Sources, venueID)
	if err != nil {
		return fmt.Errorf("apply field update %s: %w", u.Field, err)
	}
	return nil
}

// SetAddressComponentsTx merges structured PostalAddress fields onto the
// venue's enrichment row. Unlike the tagged fields, address components
// carry no single source/timestamp pair in the schema (spec §4.6 "maps
// to address components on the venue", distinct from the cited,
// dated fields in §4.7), so this merges the raw map directly.
func (s *Store) SetAddressComponentsTx(ctx context.Context, tx pgx.Tx, venueID string, components map[string]any) error {
	b, err := json.Marshal(components)
	if err != nil {
		return fmt.Errorf("marshal address components: %w", err)
	}
	_, err = tx.Exec(ctx, `UPDATE enrichment SET address_components = coalesce(address_components, '{}'::jsonb) || $2::jsonb WHERE venue_id = $1`,
		venueID, b)
	return err
}

// CompleteTx is Complete, run inside the Unifier's transaction so job
// state and enrichment writes commit together.
func (s *Store) CompleteTx(ctx context.Context, tx pgx.Tx, jobID int64, ok bool, errMsg string) error {
	state := JobSuccess
	if !ok {
		state = JobFail
	}
	_, err := tx.Exec(ctx, `UPDATE crawl_jobs SET state = $2, finished_at = now(), error = $3 WHERE id = $1`,
		jobID, state, errMsg)
	return err
}

// TouchLastEnrichedTx is TouchLastEnriched, run inside a transaction.
func (s *Store) TouchLastEnrichedTx(ctx context.Context, tx pgx.Tx, venueID string) error {
	_, err := tx.Exec(ctx, `UPDATE venues SET last_enriched_at = now() WHERE id = $1`, venueID)
	return err
}

// GetEnrichment loads the full Enrichment row for a venue, used by the
// query endpoint to assemble `freshness` and `summary`.
func (s *Store) GetEnrichment(ctx context.Context, venueID string) (*Enrichment, error) {
	var e Enrichment
	e.VenueID = venueID
	var hours, contact, features, menuItems, amenities, addressComponents, notApplicable, sources []byte

	err := s.pool.QueryRow(ctx, `
SELECT hours, hours_updated_at, contact, contact_updated_at, coalesce(description, ''), description_updated_at,
       features, features_updated_at, coalesce(menu_url, ''), menu_items, menu_updated_at,
       coalesce(price_range, ''), price_updated_at, amenities, amenities_updated_at, coalesce(fees, ''), fees_updated_at,
       address_components, not_applicable, sources
FROM enrichment WHERE venue_id = $1`, venueID).Scan(
		&hours, &e.HoursUpdatedAt, &contact, &e.ContactUpdatedAt, &e.Description, &e.DescriptionUpdatedAt,
		&features, &e.FeaturesUpdatedAt, &e.MenuURL, &menuItems, &e.MenuUpdatedAt,
		&e.PriceRange, &e.PriceUpdatedAt, &amenities, &e.AmenitiesUpdatedAt, &e.Fees, &e.FeesUpdatedAt,
		&addressComponents, &notApplicable, &sources,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enrichment: %w", err)
	}

	if err := unmarshalIfPresent(hours, &e.Hours); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(contact, &e.Contact); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(features, &e.Features); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(menuItems, &e.MenuItems); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(amenities, &e.Amenities); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(addressComponents, &e.AddressComponents); err != nil {
		return nil, err
	}
	e.NotApplicable = map[string]bool{}
	if len(notApplicable) > 0 {
		if err := json.Unmarshal(notApplicable, &e.NotApplicable); err != nil {
			return nil, err
		}
	}
	e.Sources = map[string][]string{}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &e.Sources); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func unmarshalIfPresent(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
