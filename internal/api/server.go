// Package api serves the analysis HTTP interface: synchronous analysis,
// persisted analysis runs, reports, health and metrics.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/frames"
	"github.com/banshee-data/rally.report/internal/monitoring"
	"github.com/banshee-data/rally.report/internal/observability"
	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/timeutil"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

var logf = monitoring.Component("api")

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// DefaultFrameRate is used for image-sequence inputs, which carry no rate.
const DefaultFrameRate = 30.0

// Downloader fetches a video to a local file.
type Downloader interface {
	Download(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// AdminRoutes mounts debug routes, such as the SQL console, on a mux.
type AdminRoutes interface {
	AttachAdminRoutes(mux *http.ServeMux) error
}

// Config wires a Server. Store, Analyzer and Fetcher are required.
type Config struct {
	Store    storage.AnalysisStore
	Analyzer *trajectory.Analyzer
	Detector detect.Detector
	Fetcher  Downloader
	// OpenSource opens a downloaded file; defaults to frames.Open at
	// DefaultFrameRate.
	OpenSource func(path string) (frames.Source, error)
	Sink       storage.TrajectorySink
	Metrics    *observability.Metrics
	Gatherer   prometheus.Gatherer
	Admin      AdminRoutes
	Clock      timeutil.Clock
}

// Server handles the HTTP API.
type Server struct {
	store    storage.AnalysisStore
	analyzer *trajectory.Analyzer
	detector detect.Detector
	fetcher  Downloader
	open     func(path string) (frames.Source, error)
	sink     storage.TrajectorySink
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	admin    AdminRoutes
	clock    timeutil.Clock
	hub      *Hub

	// Background runs use ctx so Close can cancel them.
	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// NewServer creates a Server from cfg.
func NewServer(cfg Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		detector: cfg.Detector,
		fetcher:  cfg.Fetcher,
		open:     cfg.OpenSource,
		sink:     cfg.Sink,
		metrics:  cfg.Metrics,
		gatherer: cfg.Gatherer,
		admin:    cfg.Admin,
		clock:    cfg.Clock,
		hub:      NewHub(),
		ctx:      ctx,
		cancel:   cancel,
	}
	if s.open == nil {
		s.open = func(path string) (frames.Source, error) {
			return frames.Open(path, DefaultFrameRate)
		}
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	return s
}

// Hub returns the websocket hub used for status events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Wait blocks until all background runs have finished.
func (s *Server) Wait() {
	s.runs.Wait()
}

// Close cancels background runs, waits for them and disconnects websocket
// clients.
func (s *Server) Close() {
	s.cancel()
	s.runs.Wait()
	s.hub.Close()
}

// ServeMux registers the API routes.
func (s *Server) ServeMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /analyze-video", s.handleAnalyzeVideo)
	mux.HandleFunc("POST /process-video", s.handleProcessVideo)

	mux.HandleFunc("GET /api/analyses", s.listAnalyses)
	mux.HandleFunc("POST /api/analyses", s.createAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}", s.getAnalysis)
	mux.HandleFunc("DELETE /api/analyses/{id}", s.deleteAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}/chart", s.analysisChart)
	mux.HandleFunc("GET /api/analyses/{id}/plot.png", s.analysisPlot)

	mux.Handle("GET /ws/analyses", s.hub)
	mux.Handle("GET /metrics", observability.Handler(s.gatherer))

	if s.admin != nil {
		if err := s.admin.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// Handler returns the routes wrapped in CORS and request logging.
func (s *Server) Handler() (http.Handler, error) {
	mux, err := s.ServeMux()
	if err != nil {
		return nil, err
	}
	return LoggingMiddleware(CORSMiddleware(mux)), nil
}

func (s *Server) publish(id string, status storage.Status, errMsg string) {
	s.hub.Publish(Event{ID: id, Status: status, Error: errMsg, Timestamp: s.clock.Now().UTC()})
}
