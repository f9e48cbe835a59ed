// Package memory provides in-process storage implementations, used when the
// service runs without a database and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/timeutil"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

// AnalysisStore is an in-memory implementation of storage.AnalysisStore.
type AnalysisStore struct {
	mu    sync.RWMutex
	data  map[string]*storage.Analysis
	clock timeutil.Clock
}

// NewAnalysisStore creates an empty store.
func NewAnalysisStore() *AnalysisStore {
	return NewAnalysisStoreWithClock(timeutil.RealClock{})
}

// NewAnalysisStoreWithClock creates an empty store stamping records with clock.
func NewAnalysisStoreWithClock(clock timeutil.Clock) *AnalysisStore {
	return &AnalysisStore{data: make(map[string]*storage.Analysis), clock: clock}
}

var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Create inserts a copy of a. Returns ErrDuplicateKey if the ID exists.
func (s *AnalysisStore) Create(_ context.Context, a *storage.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := clone(a)
	now := s.clock.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = cp.CreatedAt
	s.data[a.ID] = cp
	a.CreatedAt, a.UpdatedAt = cp.CreatedAt, cp.UpdatedAt
	return nil
}

// Get returns a copy of the record with id.
func (s *AnalysisStore) Get(_ context.Context, id string) (*storage.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(a), nil
}

// List returns records newest first, ties broken by ID.
func (s *AnalysisStore) List(_ context.Context, limit int) ([]*storage.Analysis, error) {
	s.mu.RLock()
	out := make([]*storage.Analysis, 0, len(s.data))
	for _, a := range s.data {
		out = append(out, clone(a))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus moves the run to status.
func (s *AnalysisStore) UpdateStatus(_ context.Context, id string, status storage.Status) error {
	if !status.Valid() {
		return storage.ErrInvalidInput
	}
	return s.transition(id, status, func(*storage.Analysis) {})
}

// Complete stores summary and marks the run completed.
func (s *AnalysisStore) Complete(_ context.Context, id string, summary *trajectory.Summary) error {
	if summary == nil {
		return storage.ErrInvalidInput
	}
	cp := cloneSummary(summary)
	return s.transition(id, storage.StatusCompleted, func(a *storage.Analysis) {
		a.Summary = cp
		a.ErrorMessage = ""
	})
}

// Fail records msg and marks the run failed.
func (s *AnalysisStore) Fail(_ context.Context, id string, msg string) error {
	return s.transition(id, storage.StatusFailed, func(a *storage.Analysis) {
		a.ErrorMessage = msg
	})
}

// Delete removes the record.
func (s *AnalysisStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

func (s *AnalysisStore) transition(id string, to storage.Status, apply func(*storage.Analysis)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	if !storage.CanTransition(a.Status, to) {
		return storage.ErrInvalidTransition
	}
	apply(a)
	a.Status = to
	a.UpdatedAt = s.clock.Now().UTC()
	return nil
}

func clone(a *storage.Analysis) *storage.Analysis {
	cp := *a
	cp.Summary = cloneSummary(a.Summary)
	return &cp
}

func cloneSummary(s *trajectory.Summary) *trajectory.Summary {
	if s == nil {
		return nil
	}
	cp := *s
	cp.TrajectoryData = append([]trajectory.Point(nil), s.TrajectoryData...)
	cp.BounceIndices = append([]int(nil), s.BounceIndices...)
	if cp.TrajectoryData == nil {
		cp.TrajectoryData = []trajectory.Point{}
	}
	if len(cp.BounceIndices) == 0 {
		cp.BounceIndices = nil
	}
	return &cp
}

// TrajectorySink keeps inserted points per run. It backs the analytics sink
// when ClickHouse is not configured.
type TrajectorySink struct {
	mu     sync.Mutex
	points map[string][]trajectory.Point
}

// NewTrajectorySink creates an empty sink.
func NewTrajectorySink() *TrajectorySink {
	return &TrajectorySink{points: make(map[string][]trajectory.Point)}
}

var _ storage.TrajectorySink = (*TrajectorySink)(nil)

// InsertPoints appends points for runID.
func (s *TrajectorySink) InsertPoints(_ context.Context, runID string, points []trajectory.Point) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[runID] = append(s.points[runID], points...)
	return nil
}

// Points returns a copy of the points recorded for runID.
func (s *TrajectorySink) Points(runID string) []trajectory.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]trajectory.Point(nil), s.points[runID]...)
}
