package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Enqueue inserts a pending CrawlJob. Callers may enqueue duplicates for
// the same venue; the Worker Pool collapses them within a batch (spec
// §4.9), not the queue itself.
func (s *Store) Enqueue(ctx context.Context, venueID string, mode JobMode, priority int) (int64, error) {
	const q = `INSERT INTO crawl_jobs (venue_id, mode, priority, state) VALUES ($1,$2,$3,'pending') RETURNING id`
	var id int64
	if err := s.pool.QueryRow(ctx, q, venueID, mode, priority).Scan(&id); err != nil {
		return 0, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// Claim atomically dequeues up to batchSize pending jobs, ordered by
// priority DESC, id ASC, marking them running. Uses FOR UPDATE SKIP
// LOCKED so concurrent claimants never observe the same job_id in
// running (spec §8 invariant 4).
func (s *Store) Claim(ctx context.Context, batchSize int) ([]CrawlJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const selectQ = `
SELECT id FROM crawl_jobs
WHERE state = 'pending'
ORDER BY priority DESC, id ASC
LIMIT $1
FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, selectQ, batchSize)
	if err != nil {
		return nil, fmt.Errorf("select claimable jobs: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan claimable id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	const updateQ = `
UPDATE crawl_jobs SET state = 'running', started_at = now()
WHERE id = ANY($1)
RETURNING id, venue_id, mode, priority, state, created_at, started_at, finished_at, coalesce(error, ''), reap_count`

	updated, err := tx.Query(ctx, updateQ, ids)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	var jobs []CrawlJob
	for updated.Next() {
		j, err := scanJobRow(updated)
		if err != nil {
			updated.Close()
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	updated.Close()
	if err := updated.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return jobs, nil
}

// Complete sets a job's terminal state.
func (s *Store) Complete(ctx context.Context, jobID int64, ok bool, errMsg string) error {
	state := JobSuccess
	if !ok {
		state = JobFail
	}
	const q = `UPDATE crawl_jobs SET state = $2, finished_at = now(), error = $3 WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, jobID, state, errMsg)
	return err
}

// Depth returns job counts by state, for health endpoints.
func (s *Store) Depth(ctx context.Context) (map[JobState]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT state, count(*) FROM crawl_jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	defer rows.Close()

	out := map[JobState]int{}
	for rows.Next() {
		var st JobState
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

// Reap moves running rows older than threshold back to pending, unless
// they have already been reaped K times (spec §3: "reclaimable"), in
// which case they are marked fail. K mirrors the teacher's retry-cap
// pattern in AdaptiveRateLimiter's backoff handling.
const maxReapAttempts = 3

func (s *Store) Reap(ctx context.Context, threshold time.Duration) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	cutoff := time.Now().Add(-threshold)

	failTag, err := tx.Exec(ctx, `
UPDATE crawl_jobs SET state = 'fail', finished_at = now(), error = 'stuck_reclaim_exhausted'
WHERE state = 'running' AND started_at < $1 AND reap_count >= $2`, cutoff, maxReapAttempts)
	if err != nil {
		return 0, fmt.Errorf("reap to fail: %w", err)
	}

	reapTag, err := tx.Exec(ctx, `
UPDATE crawl_jobs SET state = 'pending', started_at = NULL, reap_count = reap_count + 1
WHERE state = 'running' AND started_at < $1 AND reap_count < $2`, cutoff, maxReapAttempts)
	if err != nil {
		return 0, fmt.Errorf("reap to pending: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(failTag.RowsAffected() + reapTag.RowsAffected()), nil
}

// JobByID fetches a single job, used by GET /scrape/{job_id}.
func (s *Store) JobByID(ctx context.Context, id int64) (*CrawlJob, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, venue_id, mode, priority, state, created_at, started_at, finished_at, coalesce(error, ''), reap_count
FROM crawl_jobs WHERE id = $1`, id)
	j, err := scanJobRow(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("job %d: %w", id, err)
	}
	return j, err
}

func scanJobRow(row rowScanner) (*CrawlJob, error) {
	var j CrawlJob
	err := row.Scan(&j.ID, &j.VenueID, &j.Mode, &j.Priority, &j.State,
		&j.CreatedAt, &j.StartedAt, &j.FinishedAt, &j.Error, &j.ReapCount)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}
