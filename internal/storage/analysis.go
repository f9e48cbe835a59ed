// Package storage defines persistence for analysis runs. Implementations
// live in the memory, sqlite, postgres and clickhouse subpackages.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/banshee-data/rally.report/internal/trajectory"
)

// Status is the lifecycle state of an analysis run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a run in status from may move to to.
// Runs only move forward: pending -> processing -> completed|failed, and a
// pending run may fail before it starts.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Analysis is one analysis run record.
type Analysis struct {
	ID           string              `json:"id"`
	VideoName    string              `json:"video_name"`
	VideoURL     string              `json:"video_url"`
	VideoSize    int64               `json:"video_size,omitempty"`
	Status       Status              `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Summary      *trajectory.Summary `json:"summary,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Validate checks the fields required to create a record.
func (a *Analysis) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil analysis", ErrInvalidInput)
	}
	if a.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidInput)
	}
	if strings.TrimSpace(a.VideoName) == "" {
		return fmt.Errorf("%w: missing video name", ErrInvalidInput)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, a.Status)
	}
	return nil
}

// ProcessedVideoName is the name given to the annotated output video:
// the source name without its extension, suffixed _processed.mp4.
func ProcessedVideoName(videoName string) string {
	if videoName == "" {
		videoName = "video"
	}
	base := strings.TrimSuffix(videoName, path.Ext(videoName))
	return base + "_processed.mp4"
}

// AnalysisStore persists analysis runs.
type AnalysisStore interface {
	// Create inserts a new record. Returns ErrDuplicateKey if the ID exists.
	Create(ctx context.Context, a *Analysis) error
	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (*Analysis, error)
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Analysis, error)
	// UpdateStatus moves a run to status. Returns ErrInvalidTransition for
	// backwards or repeated transitions.
	UpdateStatus(ctx context.Context, id string, status Status) error
	// Complete stores the summary and marks the run completed.
	Complete(ctx context.Context, id string, summary *trajectory.Summary) error
	// Fail records msg and marks the run failed.
	Fail(ctx context.Context, id string, msg string) error
	// Delete removes the record. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// TrajectorySink receives the accepted points of a finished run for
// analytical queries across runs.
type TrajectorySink interface {
	InsertPoints(ctx context.Context, runID string, points []trajectory.Point) error
}
