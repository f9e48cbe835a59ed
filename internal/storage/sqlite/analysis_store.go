// Package sqlite implements storage.AnalysisStore on the SQLite database
// managed by internal/db.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/timeutil"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

// AnalysisStore persists analysis runs in the video_analyses table.
type AnalysisStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewAnalysisStore creates an AnalysisStore. The schema must already be
// migrated.
func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{db: db, clock: timeutil.RealClock{}}
}

var _ storage.AnalysisStore = (*AnalysisStore)(nil)

const analysisColumns = `id, video_name, video_url, video_size, status, error_message,
	summary_json, created_at_ns, updated_at_ns`

// Create inserts a. Returns ErrDuplicateKey if the ID exists.
func (s *AnalysisStore) Create(ctx context.Context, a *storage.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt

	err := retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO video_analyses (
				id, video_name, video_url, video_size, status, error_message,
				created_at_ns, updated_at_ns
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.VideoName, a.VideoURL, a.VideoSize, string(a.Status), a.ErrorMessage,
			a.CreatedAt.UnixNano(), a.UpdatedAt.UnixNano(),
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// Get returns the record with id.
func (s *AnalysisStore) Get(ctx context.Context, id string) (*storage.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM video_analyses WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

// List returns records newest first.
func (s *AnalysisStore) List(ctx context.Context, limit int) ([]*storage.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM video_analyses ORDER BY created_at_ns DESC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
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
	return s.transition(ctx, id, status, func(tx *sql.Tx, now int64) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE video_analyses SET status = ?, updated_at_ns = ? WHERE id = ?`,
			string(status), now, id)
		return err
	})
}

// Complete stores the summary, its headline figures and the trajectory
// points, and marks the run completed.
func (s *AnalysisStore) Complete(ctx context.Context, id string, summary *trajectory.Summary) error {
	if summary == nil {
		return storage.ErrInvalidInput
	}
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	bounces := make(map[int]bool, len(summary.BounceIndices))
	for _, i := range summary.BounceIndices {
		bounces[i] = true
	}

	return s.transition(ctx, id, storage.StatusCompleted, func(tx *sql.Tx, now int64) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE video_analyses SET
				status = ?, error_message = '', summary_json = ?, updated_at_ns = ?,
				total_bounces = ?, average_speed = ?, max_speed = ?,
				frames_analyzed = ?, ball_detection_confidence = ?
			WHERE id = ?`,
			string(storage.StatusCompleted), string(blob), now,
			summary.TotalBounces, summary.AverageSpeed, summary.MaxSpeed,
			summary.FramesAnalyzed, summary.BallDetectionConfidence,
			id,
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO trajectory_points (analysis_id, seq, x, y, t, is_bounce) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, p := range summary.TrajectoryData {
			if _, err := stmt.ExecContext(ctx, id, i, p.X, p.Y, p.Time, bounces[i]); err != nil {
				return fmt.Errorf("insert point %d: %w", i, err)
			}
		}
		return nil
	})
}

// Fail records msg and marks the run failed.
func (s *AnalysisStore) Fail(ctx context.Context, id string, msg string) error {
	return s.transition(ctx, id, storage.StatusFailed, func(tx *sql.Tx, now int64) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE video_analyses SET status = ?, error_message = ?, updated_at_ns = ? WHERE id = ?`,
			string(storage.StatusFailed), msg, now, id)
		return err
	})
}

// Delete removes the record and its trajectory points.
func (s *AnalysisStore) Delete(ctx context.Context, id string) error {
	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM video_analyses WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete analysis: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// Points returns the stored trajectory of a completed run in order.
func (s *AnalysisStore) Points(ctx context.Context, id string) ([]trajectory.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT x, y, t FROM trajectory_points WHERE analysis_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	pts := []trajectory.Point{}
	for rows.Next() {
		var p trajectory.Point
		if err := rows.Scan(&p.X, &p.Y, &p.Time); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// transition checks the current status inside a transaction and applies
// update when the move is allowed.
func (s *AnalysisStore) transition(ctx context.Context, id string, to storage.Status, update func(tx *sql.Tx, now int64) error) error {
	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		var current string
		err = tx.QueryRowContext(ctx, `SELECT status FROM video_analyses WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		if !storage.CanTransition(storage.Status(current), to) {
			return storage.ErrInvalidTransition
		}
		if err := update(tx, s.clock.Now().UTC().UnixNano()); err != nil {
			return fmt.Errorf("update analysis %s: %w", id, err)
		}
		return tx.Commit()
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row scanner) (*storage.Analysis, error) {
	var (
		a                  storage.Analysis
		status             string
		summaryJSON        sql.NullString
		createdNs, updated int64
	)
	if err := row.Scan(
		&a.ID, &a.VideoName, &a.VideoURL, &a.VideoSize, &status, &a.ErrorMessage,
		&summaryJSON, &createdNs, &updated,
	); err != nil {
		return nil, err
	}
	a.Status = storage.Status(status)
	a.CreatedAt = time.Unix(0, createdNs).UTC()
	a.UpdatedAt = time.Unix(0, updated).UTC()
	if summaryJSON.Valid && summaryJSON.String != "" {
		var sum trajectory.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &sum); err != nil {
			return nil, fmt.Errorf("decode summary for %s: %w", a.ID, err)
		}
		a.Summary = &sum
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy retries fn with a short backoff while SQLite reports the
// database as locked.
func retryOnBusy(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(i+1) * 20 * time.Millisecond)
	}
	return err
}
