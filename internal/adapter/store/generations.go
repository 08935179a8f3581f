package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veoreg/infinity-studio/internal/domain"
)

// GenerationStorePG implements domain.GenerationStore against the shared
// generations table. Status and result columns are written by the external
// workflow system; this client only inserts the initial row, reads, and
// deletes.
type GenerationStorePG struct {
	pool *pgxpool.Pool
}

// NewGenerationStore creates a generations store backed by PostgreSQL.
func NewGenerationStore(pool *pgxpool.Pool) *GenerationStorePG {
	return &GenerationStorePG{pool: pool}
}

// Insert creates the initial row with the client-assigned id.
func (s *GenerationStorePG) Insert(ctx context.Context, job *domain.GenerationJob) error {
	meta, err := job.MarshalMetadata()
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	query := `
INSERT INTO generations (id, user_id, type, status, prompt, image_url, metadata)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), $7);
`
	_, err = s.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		string(job.Kind),
		job.RawStatus,
		job.Prompt,
		job.ImageURL,
		meta,
	)
	return err
}

const selectColumns = `
SELECT id, COALESCE(user_id::text, ''), type, status,
       COALESCE(prompt, ''), COALESCE(image_url, ''), COALESCE(result_url, ''),
       COALESCE(video_url, ''), COALESCE(url, ''), COALESCE(error_message, ''),
       COALESCE(metadata, '{}'::jsonb), created_at
FROM generations
`

// GetByID is the point lookup used by the polling strategy.
func (s *GenerationStorePG) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	row := s.pool.QueryRow(ctx, selectColumns+`WHERE id = $1;`, id)
	return scanJob(row)
}

// Latest returns the single most-recently-created row across all owners. The
// deep-scan heuristic inspects it when the expected row never resolves.
func (s *GenerationStorePG) Latest(ctx context.Context) (*domain.GenerationJob, error) {
	row := s.pool.QueryRow(ctx, selectColumns+`ORDER BY created_at DESC LIMIT 1;`)
	return scanJob(row)
}

// ListCompleted returns the owner's finished generations, newest first.
func (s *GenerationStorePG) ListCompleted(ctx context.Context, owner domain.Owner, limit int) ([]domain.GenerationJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows pgx.Rows
		err  error
	)
	if owner.UserID != "" {
		rows, err = s.pool.Query(ctx,
			selectColumns+`WHERE user_id = $1 AND lower(status) IN ('completed', 'success', 'succeeded', 'done') ORDER BY created_at DESC LIMIT $2;`,
			owner.UserID, limit)
	} else {
		rows, err = s.pool.Query(ctx,
			selectColumns+`WHERE metadata @> jsonb_build_object('guest_id', $1::text) AND lower(status) IN ('completed', 'success', 'succeeded', 'done') ORDER BY created_at DESC LIMIT $2;`,
			owner.GuestID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Delete removes a row. Deletion is an explicit user action against history,
// never part of normal completion.
func (s *GenerationStorePG) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM generations WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountSince counts the owner's rows created at or after the cutoff.
func (s *GenerationStorePG) CountSince(ctx context.Context, owner domain.Owner, cutoff time.Time) (int, error) {
	var (
		row pgx.Row
	)
	if owner.UserID != "" {
		row = s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM generations WHERE user_id = $1 AND created_at >= $2;`,
			owner.UserID, cutoff)
	} else {
		row = s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM generations WHERE metadata @> jsonb_build_object('guest_id', $1::text) AND created_at >= $2;`,
			owner.GuestID, cutoff)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanJob(row pgx.Row) (*domain.GenerationJob, error) {
	var (
		job  domain.GenerationJob
		meta []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Kind,
		&job.RawStatus,
		&job.Prompt,
		&job.ImageURL,
		&job.ResultURL,
		&job.VideoURL,
		&job.PlainURL,
		&job.ErrorMessage,
		&meta,
		&job.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalMetadata(meta, &job.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", job.ID, err)
	}
	return &job, nil
}
