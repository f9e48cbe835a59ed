package trajectory

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rally.report/internal/units"
)

// Stats are the full-precision accumulators of one run.
type Stats struct {
	Points         []Point
	Speeds         []float64
	Bounces        []int
	Confidences    []float64
	FramesAnalyzed int
	FramesDecoded  int
	DetectorErrors int
	Elapsed        time.Duration
	Partial        bool
}

// Precision controls presentation rounding of a Summary.
type Precision struct {
	SpeedDecimals      int
	ConfidenceDecimals int
}

// Aggregate reduces run statistics to a Summary. Empty speed or confidence
// collections produce zeros rather than NaN.
func Aggregate(in Stats, p Precision) Summary {
	var avg, lo, hi float64
	if len(in.Speeds) > 0 {
		avg = stat.Mean(in.Speeds, nil)
		lo = floats.Min(in.Speeds)
		hi = floats.Max(in.Speeds)
	}
	var conf float64
	if len(in.Confidences) > 0 {
		conf = stat.Mean(in.Confidences, nil)
	}

	elapsed := in.Elapsed.Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	points := in.Points
	if points == nil {
		points = []Point{}
	}

	return Summary{
		TotalBounces:            len(in.Bounces),
		AverageSpeed:            units.Round(avg, p.SpeedDecimals),
		MaxSpeed:                units.Round(hi, p.SpeedDecimals),
		MinSpeed:                units.Round(lo, p.SpeedDecimals),
		ProcessingTimeSeconds:   units.Round(elapsed, 3),
		FramesAnalyzed:          in.FramesAnalyzed,
		BallDetectionConfidence: units.Round(conf, p.ConfidenceDecimals),
		TrajectoryData:          points,
		BounceIndices:           in.Bounces,
		SpeedSamples:            len(in.Speeds),
		FramesDecoded:           in.FramesDecoded,
		DetectorErrors:          in.DetectorErrors,
		Partial:                 in.Partial,
	}
}
