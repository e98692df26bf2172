// Package unify implements the Unifier (C8, spec §4.7): folding the
// Fact Extractor's resolved FieldResults into the Enrichment row and
// completing the crawl job, all inside one transaction so writes and
// terminal job state commit atomically.
package unify

import (
	"context"
	"fmt"
	"time"

	"github.com/geofacts/venues/internal/extract"
	"github.com/geofacts/venues/internal/store"
)

// Unifier applies extraction results to storage.
type Unifier struct {
	DB *store.Store
}

func New(db *store.Store) *Unifier { return &Unifier{DB: db} }

// Apply persists results for venueID and marks jobID's terminal state,
// all within one transaction (spec §4.7 "Atomicity"). ok/errMsg carry
// the job's final disposition; results may be empty (e.g. a
// total-failure crawl still needs its job marked fail).
func (u *Unifier) Apply(ctx context.Context, jobID int64, venueID string, results []extract.FieldResult, ok bool, errMsg string) error {
	tx, err := u.DB.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin unify tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := u.DB.EnsureEnrichmentRow(ctx, tx, venueID); err != nil {
		return fmt.Errorf("ensure enrichment row: %w", err)
	}

	now := time.Now()
	for _, r := range results {
		if r.Field == "address_components" {
			comp, _ := r.Value.(map[string]any)
			if err := u.DB.SetAddressComponentsTx(ctx, tx, venueID, comp); err != nil {
				return fmt.Errorf("apply address components: %w", err)
			}
			continue
		}
		fu := store.FieldUpdate{
			Field: r.Field, Value: dereference(r.Value), NotApplicable: r.NotApplicable,
			Sources: r.Sources, UpdatedAt: now,
		}
		if err := u.DB.ApplyFieldUpdate(ctx, tx, venueID, fu); err != nil {
			return fmt.Errorf("apply field %s: %w", r.Field, err)
		}
	}

	if err := u.DB.TouchLastEnrichedTx(ctx, tx, venueID); err != nil {
		return fmt.Errorf("touch last enriched: %w", err)
	}
	if err := u.DB.CompleteTx(ctx, tx, jobID, ok, errMsg); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit unify tx: %w", err)
	}
	return nil
}

// dereference unwraps the *store.Hours / *store.Contact pointers the
// Extractor uses internally into the plain values ApplyFieldUpdate's
// JSON marshaling expects.
func dereference(v any) any {
	switch t := v.(type) {
	case *store.Hours:
		return *t
	case *store.Contact:
		return *t
	default:
		return v
	}
}
