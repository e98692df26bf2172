package store

import (
	"context"
	"fmt"
)

// SaveRecoveryCandidate persists one candidate from the website-recovery
// step (spec §3, §4.5 step 1). All candidates are persisted regardless
// of which is chosen.
func (s *Store) SaveRecoveryCandidate(ctx context.Context, c *RecoveryCandidate) error {
	const q = `
INSERT INTO recovery_candidates (venue_id, url, confidence, method, is_chosen)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`
	return s.pool.QueryRow(ctx, q, c.VenueID, c.URL, c.Confidence, c.Method, c.IsChosen).
		Scan(&c.ID, &c.CreatedAt)
}

// RecoveryCandidatesForVenue returns all candidates recorded for a venue.
func (s *Store) RecoveryCandidatesForVenue(ctx context.Context, venueID string) ([]RecoveryCandidate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, venue_id, url, confidence, method, is_chosen, created_at
FROM recovery_candidates WHERE venue_id = $1 ORDER BY confidence DESC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("recovery candidates: %w", err)
	}
	defer rows.Close()

	var out []RecoveryCandidate
	for rows.Next() {
		var c RecoveryCandidate
		if err := rows.Scan(&c.ID, &c.VenueID, &c.URL, &c.Confidence, &c.Method, &c.IsChosen, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
