package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SavePage inserts a ScrapedPage. Because content_hash is globally
// unique (spec §8 invariant 5, §9 Open Question resolved globally), a
// conflict on content_hash means this exact body was already stored
// (possibly for a different venue) — the existing row is returned
// instead of erroring, so callers can still cite its URL as a source.
func (s *Store) SavePage(ctx context.Context, p *ScrapedPage) (*ScrapedPage, error) {
	redirects, err := json.Marshal(p.RedirectChain)
	if err != nil {
		return nil, fmt.Errorf("marshal redirect chain: %w", err)
	}

	const q = `
INSERT INTO scraped_pages
  (venue_id, url, page_type, fetched_at, valid_until, http_status, content_type,
   content_hash, clean_text, raw_html, discovery, redirect_chain, reason, size_bytes, total_ms, first_byte_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (content_hash) DO NOTHING
RETURNING id`

	var id int64
	err = s.pool.QueryRow(ctx, q,
		p.VenueID, p.URL, p.PageType, p.FetchedAt, p.ValidUntil, p.HTTPStatus, p.ContentType,
		p.ContentHash, p.CleanText, p.RawHTML, p.Discovery, redirects, p.Reason, p.SizeBytes, p.TotalMS, p.FirstByteMS,
	).Scan(&id)

	if err == pgx.ErrNoRows {
		// duplicate_content: the identical body already exists under some
		// other row; fetch it so the caller has a real URL to cite.
		existing, ferr := s.PageByContentHash(ctx, p.ContentHash)
		if ferr != nil {
			return nil, fmt.Errorf("duplicate content, but lookup failed: %w", ferr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("save page: %w", err)
	}

	p.ID = id
	return p, nil
}

// PageByContentHash looks up the row owning a given content hash.
func (s *Store) PageByContentHash(ctx context.Context, hash string) (*ScrapedPage, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, venue_id, url, page_type, fetched_at, valid_until, http_status,
       content_type, content_hash, clean_text, raw_html, discovery, redirect_chain, reason, size_bytes, total_ms, first_byte_ms
       FROM scraped_pages WHERE content_hash = $1`, hash)
	return scanPageRow(row)
}

// PagesForVenue returns the Fact Extractor's input set for a venue: every
// successful page still within its freshness TTL (spec §4.6 "the set of
// ScrapedPages for a venue produced in this crawl, plus historical pages
// within their TTL"). Pages whose valid_until has passed are excluded so
// expired facts can't keep winning precedence ties on fetched_at
// recency forever.
func (s *Store) PagesForVenue(ctx context.Context, venueID string) ([]ScrapedPage, error) {
	const q = `
SELECT id, venue_id, url, page_type, fetched_at, valid_until, http_status,
       content_type, content_hash, clean_text, raw_html, discovery, redirect_chain, reason, size_bytes, total_ms, first_byte_ms
FROM scraped_pages
WHERE venue_id = $1 AND reason = '' AND (valid_until IS NULL OR valid_until > now())
ORDER BY fetched_at DESC`

	rows, err := s.pool.Query(ctx, q, venueID)
	if err != nil {
		return nil, fmt.Errorf("pages for venue: %w", err)
	}
	defer rows.Close()

	var out []ScrapedPage
	for rows.Next() {
		p, err := scanPageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPageRow(row rowScanner) (*ScrapedPage, error) {
	var p ScrapedPage
	var redirects []byte
	err := row.Scan(&p.ID, &p.VenueID, &p.URL, &p.PageType, &p.FetchedAt, &p.ValidUntil, &p.HTTPStatus,
		&p.ContentType, &p.ContentHash, &p.CleanText, &p.RawHTML, &p.Discovery, &redirects, &p.Reason,
		&p.SizeBytes, &p.TotalMS, &p.FirstByteMS)
	if err != nil {
		return nil, fmt.Errorf("scan page: %w", err)
	}
	if err := json.Unmarshal(redirects, &p.RedirectChain); err != nil {
		return nil, fmt.Errorf("unmarshal redirect chain: %w", err)
	}
	return &p, nil
}
