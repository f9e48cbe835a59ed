package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

// AnalysisStore implements storage.AnalysisStore using PostgreSQL.
type AnalysisStore struct {
	pool *Pool
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(pool *Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

var _ storage.AnalysisStore = (*AnalysisStore)(nil)

const selectAnalysis = `
	SELECT id::text, video_name, video_url, video_size, status, error_message,
	       summary, created_at, updated_at
	FROM video_analyses`

// Create inserts a. Returns ErrDuplicateKey if the ID exists.
func (s *AnalysisStore) Create(ctx context.Context, a *storage.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	a.UpdatedAt = a.CreatedAt

	_, err := s.pool.Exec(ctx, `
		INSERT INTO video_analyses (
			id, video_name, video_url, video_size, status, error_message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.VideoName, a.VideoURL, a.VideoSize, string(a.Status), a.ErrorMessage,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isInvalidTextError(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// Get returns the record with id.
func (s *AnalysisStore) Get(ctx context.Context, id string) (*storage.Analysis, error) {
	a, err := scanAnalysis(s.pool.QueryRow(ctx, selectAnalysis+` WHERE id::text = $1`, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

// List returns records newest first.
func (s *AnalysisStore) List(ctx context.Context, limit int) ([]*storage.Analysis, error) {
	query := selectAnalysis + ` ORDER BY created_at DESC, id ASC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []*storage.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus moves the run to status.
func (s *AnalysisStore) UpdateStatus(ctx context.Context, id string, status storage.Status) error {
	if !status.Valid() {
		return storage.ErrInvalidInput
	}
	return s.transition(ctx, id, status, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE video_analyses SET status = $1, updated_at = now() WHERE id::text = $2`,
			string(status), id)
		return err
	})
}

// Complete stores summary and marks the run completed.
func (s *AnalysisStore) Complete(ctx context.Context, id string, summary *trajectory.Summary) error {
	if summary == nil {
		return storage.ErrInvalidInput
	}
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return s.transition(ctx, id, storage.StatusCompleted, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE video_analyses SET
				status = $1, error_message = '', summary = $2, updated_at = now(),
				total_bounces = $3, average_speed = $4, max_speed = $5, frames_analyzed = $6
			WHERE id::text = $7`,
			string(storage.StatusCompleted), blob,
			summary.TotalBounces, summary.AverageSpeed, summary.MaxSpeed, summary.FramesAnalyzed,
			id,
		)
		return err
	})
}

// Fail records msg and marks the run failed.
func (s *AnalysisStore) Fail(ctx context.Context, id string, msg string) error {
	return s.transition(ctx, id, storage.StatusFailed, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE video_analyses SET status = $1, error_message = $2, updated_at = now() WHERE id::text = $3`,
			string(storage.StatusFailed), msg, id)
		return err
	})
}

// Delete removes the record.
func (s *AnalysisStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM video_analyses WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// transition locks the row, checks the move is allowed and applies update.
func (s *AnalysisStore) transition(ctx context.Context, id string, to storage.Status, update func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM video_analyses WHERE id::text = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read status: %w", err)
	}
	if !storage.CanTransition(storage.Status(current), to) {
		return storage.ErrInvalidTransition
	}
	if err := update(tx); err != nil {
		return fmt.Errorf("update analysis %s: %w", id, err)
	}
	return tx.Commit(ctx)
}

func scanAnalysis(row pgx.Row) (*storage.Analysis, error) {
	var (
		a       storage.Analysis
		status  string
		summary []byte
	)
	if err := row.Scan(
		&a.ID, &a.VideoName, &a.VideoURL, &a.VideoSize, &status, &a.ErrorMessage,
		&summary, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = storage.Status(status)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if len(summary) > 0 {
		var sum trajectory.Summary
		if err := json.Unmarshal(summary, &sum); err != nil {
			return nil, fmt.Errorf("decode summary for %s: %w", a.ID, err)
		}
		a.Summary = &sum
	}
	return &a, nil
}
