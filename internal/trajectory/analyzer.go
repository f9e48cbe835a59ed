package trajectory

import (
	"context"
	"errors"
	"image"
	"io"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/frames"
	"github.com/banshee-data/rally.report/internal/monitoring"
	"github.com/banshee-data/rally.report/internal/timeutil"
)

// Analyzer runs the trajectory pipeline. It holds configuration only; all
// per-run state is created inside Analyze.
type Analyzer struct {
	Params Params
	Clock  timeutil.Clock
	// Logf defaults to the monitoring logger with an [analysis] prefix.
	Logf func(format string, v ...interface{})
}

// NewAnalyzer creates an Analyzer using the real clock.
func NewAnalyzer(p Params) *Analyzer {
	return &Analyzer{Params: p, Clock: timeutil.RealClock{}}
}

type frameResult struct {
	index int
	det   detect.Detection
	ok    bool
	err   error
}

func (a *Analyzer) logf(format string, v ...interface{}) {
	if a.Logf != nil {
		a.Logf(format, v...)
		return
	}
	monitoring.Logf("[analysis] "+format, v...)
}

// Analyze consumes src, runs det on the sampled frames and returns the
// summary. A nil or Unavailable detector degrades to zero detections unless
// RequireDetector is set. Per-frame detector failures count as "no ball".
// Cancelling ctx stops frame consumption; the summary built from what was
// processed is returned with Partial set.
func (a *Analyzer) Analyze(ctx context.Context, src frames.Source, det detect.Detector) Result {
	if src == nil {
		return Result{Err: ErrNoSource}
	}
	if detect.IsUnavailable(det) {
		if a.Params.RequireDetector {
			return Result{Err: ErrDetectorRequired}
		}
		reason := "no detector configured"
		switch u := det.(type) {
		case detect.Unavailable:
			reason = u.Reason
		case *detect.Unavailable:
			reason = u.Reason
		}
		a.logf("detector unavailable (%s); reporting no detections", reason)
		det = detect.Unavailable{Reason: reason}
	}

	clock := a.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()

	sampler := NewSampler(a.Params.FrameStride, a.Params.MaxFrames, a.Params.ResolutionScale)
	gated := detect.Gate{Detector: det, Threshold: a.Params.ConfidenceThreshold}

	results, decoded, partial := a.consume(ctx, src, sampler, gated)

	builder := NewBuilder(src.FrameRate())
	detectorErrors := 0
	for _, r := range results {
		if r.err != nil {
			if ctx.Err() != nil && errors.Is(r.err, ctx.Err()) {
				partial = true
			} else {
				detectorErrors++
				if detectorErrors == 1 {
					a.logf("detector error at frame %d: %v", r.index, r.err)
				}
			}
		}
		builder.Add(r.index, sampler.Restore(r.det), r.ok && r.err == nil)
	}
	if detectorErrors > 1 {
		a.logf("%d detector errors in total", detectorErrors)
	}
	if n := builder.Rejected(); n > 0 {
		a.logf("ignored %d out-of-order frames", n)
	}

	points := builder.Points()
	speeds := SpeedEstimator{
		MetersPerPixel: a.Params.MetersPerPixel,
		MaxKMPH:        a.Params.MaxPlausibleSpeedKMPH,
	}.Estimate(points)
	bounces := BounceDetector{MinProminence: a.Params.MinBounceProminencePx}.Detect(points)

	summary := Aggregate(Stats{
		Points:         points,
		Speeds:         speeds,
		Bounces:        bounces,
		Confidences:    builder.Confidences(),
		FramesAnalyzed: sampler.Submitted(),
		FramesDecoded:  decoded,
		DetectorErrors: detectorErrors,
		Elapsed:        clock.Since(start),
		Partial:        partial,
	}, Precision{
		SpeedDecimals:      a.Params.SpeedDecimals,
		ConfidenceDecimals: a.Params.ConfidenceDecimals,
	})

	a.logf("analysis complete: %d frames decoded, %d analyzed, %d detections, %d bounces",
		decoded, summary.FramesAnalyzed, len(points), summary.TotalBounces)
	return Result{Summary: summary, Partial: partial}
}

// consume reads frames until the source ends, the sampler is exhausted or
// ctx is done. Results are returned sorted by frame index.
func (a *Analyzer) consume(ctx context.Context, src frames.Source, sampler *Sampler, det detect.Detector) ([]frameResult, int, bool) {
	var (
		mu      sync.Mutex
		results []frameResult
		g       errgroup.Group
	)
	workers := a.Params.Workers
	if workers > 1 {
		g.SetLimit(workers)
	}

	run := func(index int, img image.Image) {
		d, ok, err := det.Detect(ctx, img)
		mu.Lock()
		results = append(results, frameResult{index: index, det: d, ok: ok, err: err})
		mu.Unlock()
	}

	decoded := 0
	partial := false
	for {
		if ctx.Err() != nil {
			a.logf("stopping after %d frames: %v", decoded, ctx.Err())
			partial = true
			break
		}
		if sampler.Exhausted() {
			break
		}
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			a.logf("decode error after %d frames: %v", decoded, err)
			partial = true
			break
		}
		decoded++
		if !sampler.Submit(f.Index) {
			continue
		}
		img := sampler.Prepare(f.Image)
		if workers > 1 {
			g.Go(func() error {
				run(f.Index, img)
				return nil
			})
		} else {
			run(f.Index, img)
		}
	}
	_ = g.Wait()

	slices.SortFunc(results, func(x, y frameResult) int {
		return x.index - y.index
	})
	return results, decoded, partial
}
