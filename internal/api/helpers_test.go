package api

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/frames"
	"github.com/banshee-data/rally.report/internal/observability"
	"github.com/banshee-data/rally.report/internal/storage/memory"
	"github.com/banshee-data/rally.report/internal/timeutil"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

type fakeDownloader struct {
	mu       sync.Mutex
	err      error
	urls     []string
	cleanups int
}

func (d *fakeDownloader) Download(_ context.Context, url string) (string, func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return "", nil, d.err
	}
	return "/scratch/clip.mp4", func() {
		d.mu.Lock()
		d.cleanups++
		d.mu.Unlock()
	}, nil
}

func (d *fakeDownloader) Cleanups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cleanups
}

type fakeAdmin struct {
	err      error
	attached bool
}

func (a *fakeAdmin) AttachAdminRoutes(mux *http.ServeMux) error {
	a.attached = true
	if a.err != nil {
		return a.err
	}
	mux.HandleFunc("/debug/tailsql/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	return nil
}

// rallyFixture is a 14 frame rally at 10 fps with bounces at points 1 and 4.
func rallyFixture() ([]image.Image, detect.Lookup) {
	imgs := frames.Blank(14, 8, 8)
	return imgs, detect.Lookup{
		imgs[0]:  {X: 100, Y: 100, Confidence: 0.9},
		imgs[2]:  {X: 150, Y: 150, Confidence: 0.8},
		imgs[4]:  {X: 200, Y: 100, Confidence: 0.7},
		imgs[6]:  {X: 250, Y: 90, Confidence: 0.9},
		imgs[8]:  {X: 300, Y: 150, Confidence: 0.6},
		imgs[10]: {X: 350, Y: 100, Confidence: 0.8},
	}
}

type testEnv struct {
	server   *Server
	store    *memory.AnalysisStore
	sink     *memory.TrajectorySink
	fetcher  *fakeDownloader
	metrics  *observability.Metrics
	registry *prometheus.Registry
	handler  http.Handler
	openErr  error
}

type envOption func(*Config, *testEnv)

func withDetector(d detect.Detector) envOption {
	return func(c *Config, _ *testEnv) { c.Detector = d }
}

func withParams(p trajectory.Params) envOption {
	return func(c *Config, _ *testEnv) {
		c.Analyzer.Params = p
	}
}

func withAdmin(a AdminRoutes) envOption {
	return func(c *Config, _ *testEnv) { c.Admin = a }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	imgs, lookup := rallyFixture()

	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	analyzer := trajectory.NewAnalyzer(trajectory.DefaultParams())
	analyzer.Clock = clock
	analyzer.Logf = func(string, ...interface{}) {}

	env := &testEnv{
		store:    memory.NewAnalysisStoreWithClock(clock),
		sink:     memory.NewTrajectorySink(),
		fetcher:  &fakeDownloader{},
		registry: prometheus.NewRegistry(),
	}
	env.metrics = observability.NewMetrics("rally", env.registry)

	cfg := Config{
		Store:    env.store,
		Analyzer: analyzer,
		Detector: lookup,
		Fetcher:  env.fetcher,
		OpenSource: func(string) (frames.Source, error) {
			if env.openErr != nil {
				return nil, env.openErr
			}
			return frames.NewSliceSource(imgs, 10), nil
		},
		Sink:     env.sink,
		Metrics:  env.metrics,
		Gatherer: env.registry,
		Clock:    clock,
	}
	for _, o := range opts {
		o(&cfg, env)
	}

	env.server = NewServer(cfg)
	t.Cleanup(env.server.Close)
	h, err := env.server.Handler()
	require.NoError(t, err)
	env.handler = h
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

var errBoom = errors.New("boom")
