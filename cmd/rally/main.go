// Command rally serves the tennis ball analysis API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/banshee-data/rally.report/internal/api"
	"github.com/banshee-data/rally.report/internal/config"
	"github.com/banshee-data/rally.report/internal/db"
	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/fetch"
	"github.com/banshee-data/rally.report/internal/observability"
	"github.com/banshee-data/rally.report/internal/trajectory"
	"github.com/banshee-data/rally.report/internal/version"
)

var (
	listen          = flag.String("listen", ":8000", "Listen address")
	dbPath          = flag.String("db", "rally.db", "SQLite database path (sqlite store)")
	storeKind       = flag.String("store", "sqlite", "Run store: sqlite, postgres or memory")
	pgDSN           = flag.String("pg-dsn", "", "PostgreSQL connection string (postgres store)")
	clickhouseDSN   = flag.String("clickhouse-dsn", "", "Optional ClickHouse DSN for trajectory export")
	detectorURL     = flag.String("detector-url", "", "Ball detection service base URL")
	configPath      = flag.String("config", config.DefaultConfigPath, "Analysis configuration file")
	requireDetector = flag.Bool("require-detector", false, "Fail analyses when no detector is available")
	showVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("rally %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: rally [flags]\n       rally [flags] migrate <up|down|status|force N|help>\n\nFlags:\n")
	flag.PrintDefaults()
}

func loadConfig(path string) (*config.AnalysisConfig, error) {
	cfg, err := config.LoadAnalysisConfig(path)
	if errors.Is(err, os.ErrNotExist) && path == config.DefaultConfigPath {
		log.Printf("no config at %s, using built-in defaults", path)
		return config.EmptyAnalysisConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	params := trajectory.ParamsFromConfig(cfg)
	if *requireDetector {
		params.RequireDetector = true
	}

	st, err := openStore(ctx, *storeKind, *dbPath, *pgDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	sink, closeSink, err := openSink(ctx, *clickhouseDSN)
	if err != nil {
		return err
	}
	defer closeSink()

	det := detect.Connect(ctx, detect.RemoteConfig{
		Endpoint: *detectorURL,
		Timeout:  cfg.GetDetectorTimeout(),
	}, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := api.NewServer(api.Config{
		Store:    st.AnalysisStore,
		Analyzer: trajectory.NewAnalyzer(params),
		Detector: det,
		Fetcher:  fetch.New(nil, cfg),
		Sink:     sink,
		Metrics:  observability.NewMetrics("rally", reg),
		Gatherer: reg,
		Admin:    st.admin,
	})
	handler, err := server.Handler()
	if err != nil {
		return fmt.Errorf("mount routes: %w", err)
	}

	httpServer := &http.Server{
		Addr:              *listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("rally %s listening on %s (store=%s)", version.Version, *listen, *storeKind)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	server.Close()
	log.Print("shutdown complete")
	return nil
}
