// Package report renders a trajectory summary as an interactive echarts page
// or a static PNG plot. Bounce points are drawn as a separate series.
package report

import (
	"github.com/banshee-data/rally.report/internal/trajectory"
)

// DefaultAssetsHost serves the echarts JavaScript bundle.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// split partitions the trajectory into in-flight points and bounce points.
// Out-of-range bounce indices are ignored.
func split(s trajectory.Summary) (flight, bounces []trajectory.Point) {
	isBounce := make(map[int]bool, len(s.BounceIndices))
	for _, i := range s.BounceIndices {
		if i >= 0 && i < len(s.TrajectoryData) {
			isBounce[i] = true
		}
	}
	for i, p := range s.TrajectoryData {
		if isBounce[i] {
			bounces = append(bounces, p)
		} else {
			flight = append(flight, p)
		}
	}
	return flight, bounces
}
