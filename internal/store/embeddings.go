package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SaveEmbedding upserts a venue's embedding vector. The pgvector column
// is populated via a text-literal cast ("[v1,v2,...]"::vector) so this
// package needs no extra pgvector client driver, matching spec §9's
// preference for explicit, dependency-light wire formats over the one
// legacy free-form field.
func (s *Store) SaveEmbedding(ctx context.Context, e *Embedding) error {
	lit := vectorLiteral(e.Vector[:])
	const q = `
INSERT INTO embeddings (venue_id, vector, valid_until)
VALUES ($1, $2::vector, $3)
ON CONFLICT (venue_id) DO UPDATE SET vector = EXCLUDED.vector, valid_until = EXCLUDED.valid_until, created_at = now()`
	_, err := s.pool.Exec(ctx, q, e.VenueID, lit, e.ValidUntil)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// EmbeddingForVenue loads a venue's embedding, or nil if absent/expired
// — callers should fall back to popularity+distance ranking when this
// returns nil (spec §9 design note on embedding dependency failure).
func (s *Store) EmbeddingForVenue(ctx context.Context, venueID string) (*Embedding, error) {
	var lit string
	e := &Embedding{VenueID: venueID}
	err := s.pool.QueryRow(ctx, `
SELECT vector::text, valid_until, created_at FROM embeddings
WHERE venue_id = $1 AND (valid_until IS NULL OR valid_until > now())`, venueID).
		Scan(&lit, &e.ValidUntil, &e.CreatedAt)
	if err != nil {
		return nil, nil
	}
	vec, err := parseVectorLiteral(lit)
	if err != nil {
		return nil, fmt.Errorf("parse embedding vector: %w", err)
	}
	e.Vector = vec
	return e, nil
}

// VenuesMissingEmbeddings returns venue IDs with enrichment text but no
// current embedding row, for the Embedding Producer (C11).
func (s *Store) VenuesMissingEmbeddings(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT e.venue_id FROM enrichment e
LEFT JOIN embeddings emb ON emb.venue_id = e.venue_id
WHERE (emb.venue_id IS NULL OR emb.valid_until < now())
  AND coalesce(e.description, '') <> ''
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("venues missing embeddings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', 8, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func parseVectorLiteral(lit string) ([EmbeddingDimensions]float32, error) {
	var out [EmbeddingDimensions]float32
	lit = strings.TrimPrefix(lit, "[")
	lit = strings.TrimSuffix(lit, "]")
	if lit == "" {
		return out, nil
	}
	parts := strings.Split(lit, ",")
	if len(parts) != EmbeddingDimensions {
		return out, fmt.Errorf("expected %d dimensions, got %d", EmbeddingDimensions, len(parts))
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return out, fmt.Errorf("parse dimension %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
