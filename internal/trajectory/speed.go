package trajectory

import (
	"math"

	"github.com/banshee-data/rally.report/internal/config"
	"github.com/banshee-data/rally.report/internal/units"
)

// SpeedEstimator converts consecutive trajectory points into km/h samples.
//
// Pixel distance is scaled linearly by MetersPerPixel (units.MetersPerPixel
// when zero). Pairs with a non-positive time step are skipped, and samples
// outside (0, MaxKMPH) are dropped as detector noise.
type SpeedEstimator struct {
	MetersPerPixel float64
	MaxKMPH        float64
}

// Estimate returns the accepted samples in trajectory order.
func (e SpeedEstimator) Estimate(points []Point) []float64 {
	if len(points) < 2 {
		return nil
	}
	limit := e.MaxKMPH
	if limit <= 0 {
		limit = config.DefaultMaxPlausibleSpeedKMPH
	}

	var speeds []float64
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		dt := curr.Time - prev.Time
		if dt <= 0 {
			continue
		}
		px := math.Hypot(curr.X-prev.X, curr.Y-prev.Y)
		mps := units.PixelsToMeters(px, e.MetersPerPixel) / dt
		kmph := units.ConvertSpeed(mps, units.KMPH)
		if kmph > 0 && kmph < limit {
			speeds = append(speeds, kmph)
		}
	}
	return speeds
}
