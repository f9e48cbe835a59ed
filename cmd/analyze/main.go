// Command analyze runs the trajectory pipeline over a local video or image
// sequence and prints the summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/rally.report/internal/config"
	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/frames"
	"github.com/banshee-data/rally.report/internal/fsutil"
	"github.com/banshee-data/rally.report/internal/monitoring"
	"github.com/banshee-data/rally.report/internal/report"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

type options struct {
	fps         float64
	configPath  string
	detectorURL string
	chartPath   string
	plotPath    string
	workers     int
	quiet       bool
	input       string
}

func parseFlags(args []string, errOut io.Writer) (*options, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(errOut)
	o := &options{}
	fs.Float64Var(&o.fps, "fps", 30, "Frame rate of image sequences (videos report their own)")
	fs.StringVar(&o.configPath, "config", "", "Analysis configuration file (defaults built in)")
	fs.StringVar(&o.detectorURL, "detector-url", "", "Ball detection service base URL")
	fs.StringVar(&o.chartPath, "chart", "", "Write an interactive HTML chart to this path")
	fs.StringVar(&o.plotPath, "plot", "", "Write a PNG trajectory plot to this path")
	fs.IntVar(&o.workers, "workers", 0, "Concurrent detector calls (0 uses the config value)")
	fs.BoolVar(&o.quiet, "quiet", false, "Suppress progress logging")
	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: analyze [flags] <video file | frame directory>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one input path is required")
	}
	if o.fps <= 0 {
		return nil, fmt.Errorf("-fps must be positive, got %g", o.fps)
	}
	if o.workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative, got %d", o.workers)
	}
	o.input = fs.Arg(0)
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout, fsutil.OSFileSystem{}); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, o *options, out io.Writer, fsys fsutil.FileSystem) error {
	if o.quiet {
		prev := monitoring.Logf
		monitoring.SetLogger(nil)
		defer monitoring.SetLogger(prev)
	}

	cfg := config.EmptyAnalysisConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfig(o.configPath); err != nil {
			return err
		}
	}
	params := trajectory.ParamsFromConfig(cfg)
	if o.workers > 0 {
		params.Workers = o.workers
	}

	src, err := frames.Open(o.input, o.fps)
	if errors.Is(err, frames.ErrNoFrames) {
		monitoring.Logf("%v; reporting an empty run", err)
		src, err = frames.Empty(o.fps), nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	det := detect.Connect(ctx, detect.RemoteConfig{
		Endpoint: o.detectorURL,
		Timeout:  cfg.GetDetectorTimeout(),
	}, nil)

	res := trajectory.NewAnalyzer(params).Analyze(ctx, src, det)
	if !res.OK() {
		return res.Err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Summary); err != nil {
		return err
	}

	if o.chartPath != "" {
		if err := writeWith(fsys, o.chartPath, func(w io.Writer) error {
			return report.Chart(w, res.Summary, report.ChartOptions{Title: o.input})
		}); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}
	if o.plotPath != "" {
		if err := writeWith(fsys, o.plotPath, func(w io.Writer) error {
			return report.Plot(w, res.Summary, report.PlotOptions{Title: o.input})
		}); err != nil {
			return fmt.Errorf("write plot: %w", err)
		}
	}
	return nil
}

func writeWith(fsys fsutil.FileSystem, path string, render func(io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		fsys.Remove(path)
		return err
	}
	return f.Close()
}
