package trajectory

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/frames"
	"github.com/banshee-data/rally.report/internal/monitoring"
	"github.com/banshee-data/rally.report/internal/timeutil"
)

func quietAnalyzer(p Params) *Analyzer {
	a := NewAnalyzer(p)
	a.Clock = timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	a.Logf = func(string, ...interface{}) {}
	return a
}

// bounceRally lays out a short rally at 10 fps: even frames carry the ball,
// dipping to y=150 at frame 2 and again at frame 8.
func bounceRally(t *testing.T) ([]image.Image, detect.Lookup) {
	t.Helper()
	imgs := frames.Blank(14, 8, 8)
	lookup := detect.Lookup{
		imgs[0]:  {X: 100, Y: 100, Confidence: 0.9},
		imgs[2]:  {X: 150, Y: 150, Confidence: 0.8},
		imgs[4]:  {X: 200, Y: 100, Confidence: 0.7},
		imgs[6]:  {X: 250, Y: 90, Confidence: 0.9},
		imgs[8]:  {X: 300, Y: 150, Confidence: 0.6},
		imgs[10]: {X: 350, Y: 100, Confidence: 0.8},
		imgs[12]: {X: 400, Y: 50, Confidence: 0.3},  // rejected by the gate
		imgs[5]:  {X: 999, Y: 999, Confidence: 1.0}, // odd frame, never submitted
	}
	return imgs, lookup
}

func TestAnalyze_Rally(t *testing.T) {
	imgs, lookup := bounceRally(t)
	res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), frames.NewSliceSource(imgs, 10), lookup)
	require.True(t, res.OK())
	assert.False(t, res.Partial)

	s := res.Summary
	assert.Equal(t, 7, s.FramesAnalyzed)
	assert.Equal(t, 14, s.FramesDecoded)
	require.Len(t, s.TrajectoryData, 6)
	assert.Equal(t, Point{X: 150, Y: 150, Time: 0.2}, s.TrajectoryData[1])
	assert.Equal(t, 2, s.TotalBounces)
	assert.Equal(t, []int{1, 4}, s.BounceIndices)
	assert.Equal(t, 0.78, s.BallDetectionConfidence)
	assert.Equal(t, 5, s.SpeedSamples)
	assert.Greater(t, s.MaxSpeed, s.MinSpeed)
	assert.Equal(t, 0.0, s.ProcessingTimeSeconds)
}

func TestAnalyze_NoDetections(t *testing.T) {
	src := frames.NewSliceSource(frames.Blank(20, 4, 4), 30)
	res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), src, detect.Lookup{})
	require.True(t, res.OK())

	s := res.Summary
	assert.Empty(t, s.TrajectoryData)
	assert.NotNil(t, s.TrajectoryData)
	assert.Equal(t, 0, s.TotalBounces)
	assert.Equal(t, 0.0, s.BallDetectionConfidence)
	assert.Equal(t, 0.0, s.AverageSpeed)
	assert.Equal(t, 10, s.FramesAnalyzed, "only every second frame is submitted")
	assert.Equal(t, 20, s.FramesDecoded)
}

func TestAnalyze_EmptyVideo(t *testing.T) {
	res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), frames.Empty(30), detect.Lookup{})
	require.True(t, res.OK())
	want := Summary{TrajectoryData: []Point{}}
	assert.Empty(t, cmp.Diff(want, res.Summary))
}

func TestAnalyze_WorkCeiling(t *testing.T) {
	calls := 0
	det := detect.Func(func(context.Context, image.Image) (detect.Detection, bool, error) {
		calls++
		return detect.Detection{}, false, nil
	})
	src := frames.NewSliceSource(frames.Blank(500, 2, 2), 30)
	res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), src, det)
	require.True(t, res.OK())
	assert.Equal(t, 100, res.Summary.FramesAnalyzed)
	assert.Equal(t, 100, calls)
	assert.Less(t, res.Summary.FramesDecoded, 500, "consumption stops at the ceiling")
}

func TestAnalyze_UnavailableDetector(t *testing.T) {
	imgs := frames.Blank(6, 2, 2)

	for _, det := range []detect.Detector{nil, detect.Unavailable{Reason: "weights missing"}, &detect.Unavailable{}} {
		res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), frames.NewSliceSource(imgs, 30), det)
		require.True(t, res.OK())
		assert.Equal(t, 3, res.Summary.FramesAnalyzed)
		assert.Empty(t, res.Summary.TrajectoryData)
		assert.Equal(t, 0.0, res.Summary.BallDetectionConfidence)
	}

	p := DefaultParams()
	p.RequireDetector = true
	res := quietAnalyzer(p).Analyze(context.Background(), frames.NewSliceSource(imgs, 30), nil)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrDetectorRequired)
}

func TestAnalyze_NoSource(t *testing.T) {
	res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), nil, detect.Lookup{})
	assert.ErrorIs(t, res.Err, ErrNoSource)
}

func TestAnalyze_DetectorErrorsAbsorbed(t *testing.T) {
	imgs := frames.Blank(8, 2, 2)
	failing := imgs[2]
	det := detect.Func(func(_ context.Context, img image.Image) (detect.Detection, bool, error) {
		if img == failing {
			return detect.Detection{}, false, errors.New("inference timeout")
		}
		return detect.Detection{X: 10, Y: 10, Confidence: 0.9}, true, nil
	})
	res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), frames.NewSliceSource(imgs, 10), det)
	require.True(t, res.OK())
	assert.Equal(t, 4, res.Summary.FramesAnalyzed)
	assert.Equal(t, 1, res.Summary.DetectorErrors)
	assert.Len(t, res.Summary.TrajectoryData, 3)
}

func TestAnalyze_Idempotent(t *testing.T) {
	imgs, lookup := bounceRally(t)
	a := quietAnalyzer(DefaultParams())
	first := a.Analyze(context.Background(), frames.NewSliceSource(imgs, 10), lookup)
	second := a.Analyze(context.Background(), frames.NewSliceSource(imgs, 10), lookup)
	if diff := cmp.Diff(first, second, cmp.Comparer(func(x, y error) bool { return x == y })); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestAnalyze_WorkersMatchSequential(t *testing.T) {
	imgs, lookup := bounceRally(t)
	seq := quietAnalyzer(DefaultParams()).Analyze(context.Background(), frames.NewSliceSource(imgs, 10), lookup)

	p := DefaultParams()
	p.Workers = 4
	par := quietAnalyzer(p).Analyze(context.Background(), frames.NewSliceSource(imgs, 10), lookup)

	require.True(t, par.OK())
	if diff := cmp.Diff(seq.Summary, par.Summary); diff != "" {
		t.Errorf("parallel summary differs (-seq +par):\n%s", diff)
	}
}

func TestAnalyze_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := quietAnalyzer(DefaultParams()).Analyze(ctx, frames.NewSliceSource(frames.Blank(10, 2, 2), 30), detect.Lookup{})
	require.True(t, res.OK())
	assert.True(t, res.Partial)
	assert.True(t, res.Summary.Partial)
	assert.Equal(t, 0, res.Summary.FramesAnalyzed)
}

func TestAnalyze_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	imgs := frames.Blank(20, 2, 2)
	stopAt := imgs[4]
	det := detect.Func(func(_ context.Context, img image.Image) (detect.Detection, bool, error) {
		if img == stopAt {
			cancel()
		}
		return detect.Detection{X: 1, Y: 1, Confidence: 0.9}, true, nil
	})
	res := quietAnalyzer(DefaultParams()).Analyze(ctx, frames.NewSliceSource(imgs, 30), det)
	require.True(t, res.OK())
	assert.True(t, res.Partial)
	assert.Equal(t, 3, res.Summary.FramesAnalyzed)
	assert.Len(t, res.Summary.TrajectoryData, 3)
}

type brokenSource struct {
	*frames.SliceSource
	failAfter int
	read      int
}

func (s *brokenSource) Next() (frames.Frame, error) {
	if s.read >= s.failAfter {
		return frames.Frame{}, errors.New("corrupt packet")
	}
	s.read++
	return s.SliceSource.Next()
}

func TestAnalyze_DecodeErrorKeepsPartial(t *testing.T) {
	src := &brokenSource{SliceSource: frames.NewSliceSource(frames.Blank(10, 2, 2), 30), failAfter: 5}
	det := detect.Func(func(context.Context, image.Image) (detect.Detection, bool, error) {
		return detect.Detection{X: 5, Y: 5, Confidence: 0.5}, true, nil
	})
	res := quietAnalyzer(DefaultParams()).Analyze(context.Background(), src, det)
	require.True(t, res.OK())
	assert.True(t, res.Partial)
	assert.Equal(t, 5, res.Summary.FramesDecoded)
	assert.Equal(t, 3, res.Summary.FramesAnalyzed)
}

func TestAnalyze_ResolutionScale(t *testing.T) {
	imgs := []image.Image{image.NewRGBA(image.Rect(0, 0, 100, 80))}
	var seen image.Rectangle
	det := detect.Func(func(_ context.Context, img image.Image) (detect.Detection, bool, error) {
		seen = img.Bounds()
		return detect.Detection{X: float64(seen.Dx()) / 2, Y: float64(seen.Dy()) / 2, Confidence: 0.9}, true, nil
	})
	p := DefaultParams()
	p.ResolutionScale = 0.5
	res := quietAnalyzer(p).Analyze(context.Background(), frames.NewSliceSource(imgs, 30), det)
	require.True(t, res.OK())
	assert.Equal(t, image.Rect(0, 0, 50, 40), seen)
	require.Len(t, res.Summary.TrajectoryData, 1)
	assert.Equal(t, Point{X: 50, Y: 40, Time: 0}, res.Summary.TrajectoryData[0])
}

func TestAnalyze_ProcessingTime(t *testing.T) {
	a := quietAnalyzer(DefaultParams())
	a.Clock = timeutil.NewStepClock(time.Unix(0, 0), 1500*time.Millisecond)
	res := a.Analyze(context.Background(), frames.Empty(30), nil)
	assert.Equal(t, 1.5, res.Summary.ProcessingTimeSeconds)
}

func TestAnalyze_DefaultLogger(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	defer monitoring.SetLogger(nil)

	a := NewAnalyzer(DefaultParams())
	a.Analyze(context.Background(), frames.Empty(30), nil)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "[analysis] ")
}
