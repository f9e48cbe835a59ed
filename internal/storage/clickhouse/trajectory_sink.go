package clickhouse

import (
	"context"
	"fmt"

	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

// TrajectorySink implements storage.TrajectorySink using ClickHouse.
type TrajectorySink struct {
	conn *Conn
}

// NewTrajectorySink creates a new TrajectorySink.
func NewTrajectorySink(conn *Conn) *TrajectorySink {
	return &TrajectorySink{conn: conn}
}

var _ storage.TrajectorySink = (*TrajectorySink)(nil)

// InsertPoints writes points for runID in one batch. Re-sending a run
// replaces its rows on merge.
func (s *TrajectorySink) InsertPoints(ctx context.Context, runID string, points []trajectory.Point) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO trajectory_points (run_id, seq, x, y, t)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for i, p := range points {
		if err := batch.Append(runID, uint32(i), p.X, p.Y, p.Time); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Points returns the stored points for runID ordered by sequence.
func (s *TrajectorySink) Points(ctx context.Context, runID string) ([]trajectory.Point, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT x, y, t FROM trajectory_points FINAL
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var pts []trajectory.Point
	for rows.Next() {
		var p trajectory.Point
		if err := rows.Scan(&p.X, &p.Y, &p.Time); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}
