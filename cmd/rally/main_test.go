package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rally.report/internal/config"
	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/storage/memory"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, ":8000", *listen)
	assert.Equal(t, "sqlite", *storeKind)
	assert.Equal(t, config.DefaultConfigPath, *configPath)
	assert.False(t, *requireDetector)
}

func TestOpenStore_Memory(t *testing.T) {
	st, err := openStore(context.Background(), "memory", "", "")
	require.NoError(t, err)
	defer st.Close()
	assert.IsType(t, &memory.AnalysisStore{}, st.AnalysisStore)
	assert.Nil(t, st.admin)
}

func TestOpenStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rally.db")
	st, err := openStore(context.Background(), "sqlite", path, "")
	require.NoError(t, err)
	defer st.Close()

	require.NotNil(t, st.admin)
	require.NoError(t, st.admin.AttachAdminRoutes(http.NewServeMux()))

	ctx := context.Background()
	require.NoError(t, st.Create(ctx, &storage.Analysis{ID: "r1", VideoName: "a.mp4", Status: storage.StatusPending}))
	got, err := st.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", got.VideoName)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenStore_Errors(t *testing.T) {
	_, err := openStore(context.Background(), "postgres", "", "")
	assert.ErrorContains(t, err, "-pg-dsn")

	_, err = openStore(context.Background(), "mongodb", "", "")
	assert.ErrorContains(t, err, "unknown store")
}

func TestOpenSink_Disabled(t *testing.T) {
	sink, closeSink, err := openSink(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sink)
	closeSink()

	_, _, err = openSink(context.Background(), "postgres://wrong-scheme")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(config.DefaultConfigPath)
	require.NoError(t, err, "missing default config falls back to defaults")
	assert.Equal(t, config.DefaultFrameStride, cfg.GetFrameStride())

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"frame_stride": 3}`), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GetFrameStride())
}
