package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rally.report/internal/storage"
)

// NewAnalysis returns a pending record with a fresh ID. created is truncated
// to microseconds so it survives every backend's timestamp precision.
func NewAnalysis(name string, created time.Time) *storage.Analysis {
	return &storage.Analysis{
		ID:        uuid.NewString(),
		VideoName: name,
		VideoURL:  "https://videos.example.com/" + name,
		VideoSize: 1 << 20,
		Status:    storage.StatusPending,
		CreatedAt: created.UTC().Truncate(time.Microsecond),
	}
}

// RunAnalysisStoreSuite exercises the storage.AnalysisStore contract.
// newStore must return an empty store for each call.
func RunAnalysisStoreSuite(t *testing.T, newStore func(t *testing.T) storage.AnalysisStore) {
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		a := NewAnalysis("rally.mp4", base)
		require.NoError(t, s.Create(ctx, a))

		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, "rally.mp4", got.VideoName)
		assert.Equal(t, a.VideoURL, got.VideoURL)
		assert.Equal(t, int64(1<<20), got.VideoSize)
		assert.Equal(t, storage.StatusPending, got.Status)
		assert.Nil(t, got.Summary)
		assert.True(t, got.CreatedAt.Equal(a.CreatedAt), "created_at %v != %v", got.CreatedAt, a.CreatedAt)
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := newStore(t)
		a := NewAnalysis("rally.mp4", base)
		require.NoError(t, s.Create(ctx, a))
		assert.ErrorIs(t, s.Create(ctx, a), storage.ErrDuplicateKey)
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newStore(t)
		a := NewAnalysis("", base)
		assert.ErrorIs(t, s.Create(ctx, a), storage.ErrInvalidInput)
		assert.ErrorIs(t, s.Create(ctx, nil), storage.ErrInvalidInput)
	})

	t.Run("missing record", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.UpdateStatus(ctx, uuid.NewString(), storage.StatusProcessing), storage.ErrNotFound)
		assert.ErrorIs(t, s.Complete(ctx, uuid.NewString(), SampleSummary()), storage.ErrNotFound)
		assert.ErrorIs(t, s.Fail(ctx, uuid.NewString(), "boom"), storage.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, uuid.NewString()), storage.ErrNotFound)
	})

	t.Run("complete lifecycle", func(t *testing.T) {
		s := newStore(t)
		a := NewAnalysis("serve.mov", base)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.UpdateStatus(ctx, a.ID, storage.StatusProcessing))

		want := SampleSummary()
		require.NoError(t, s.Complete(ctx, a.ID, want))

		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, storage.StatusCompleted, got.Status)
		require.NotNil(t, got.Summary)
		if diff := cmp.Diff(want, got.Summary, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("summary mismatch (-want +got):\n%s", diff)
		}
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

		assert.ErrorIs(t, s.Complete(ctx, a.ID, want), storage.ErrInvalidTransition)
		assert.ErrorIs(t, s.Fail(ctx, a.ID, "late"), storage.ErrInvalidTransition)
	})

	t.Run("fail", func(t *testing.T) {
		s := newStore(t)
		a := NewAnalysis("broken.mp4", base)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.UpdateStatus(ctx, a.ID, storage.StatusProcessing))
		require.NoError(t, s.Fail(ctx, a.ID, "download failed: 404"))

		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, storage.StatusFailed, got.Status)
		assert.Equal(t, "download failed: 404", got.ErrorMessage)
		assert.Nil(t, got.Summary)
	})

	t.Run("no backwards transition", func(t *testing.T) {
		s := newStore(t)
		a := NewAnalysis("rally.mp4", base)
		require.NoError(t, s.Create(ctx, a))
		assert.ErrorIs(t, s.Complete(ctx, a.ID, SampleSummary()), storage.ErrInvalidTransition)
		require.NoError(t, s.UpdateStatus(ctx, a.ID, storage.StatusProcessing))
		assert.ErrorIs(t, s.UpdateStatus(ctx, a.ID, storage.StatusPending), storage.ErrInvalidTransition)
		assert.ErrorIs(t, s.UpdateStatus(ctx, a.ID, "queued"), storage.ErrInvalidInput)
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		var ids []string
		for i := 0; i < 3; i++ {
			a := NewAnalysis("clip.mp4", base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, s.Create(ctx, a))
			ids = append(ids, a.ID)
		}

		all, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

		two, err := s.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, two, 2)
		assert.Equal(t, ids[2], two[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		a := NewAnalysis("rally.mp4", base)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.Delete(ctx, a.ID))
		_, err := s.Get(ctx, a.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, a.ID), storage.ErrNotFound)
	})
}
