package trajectory

import "math"

// BounceDetector flags local maxima of y (screen coordinates, y grows
// downward) whose rise from the previous point exceeds MinProminence pixels.
// Adjacent flags are not merged.
type BounceDetector struct {
	MinProminence float64
}

// Detect returns the indices into points that are bounces.
func (d BounceDetector) Detect(points []Point) []int {
	if len(points) < 3 {
		return nil
	}
	var idx []int
	for i := 1; i < len(points)-1; i++ {
		prev, curr, next := points[i-1].Y, points[i].Y, points[i+1].Y
		if prev < curr && next < curr && math.Abs(curr-prev) > d.MinProminence {
			idx = append(idx, i)
		}
	}
	return idx
}
