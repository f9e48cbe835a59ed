package trajectory

import "github.com/banshee-data/rally.report/internal/detect"

// Builder folds per-frame detections into an ordered trajectory. Frames
// without a detection are skipped; no gaps are filled.
type Builder struct {
	frameRate   float64
	points      []Point
	confidences []float64
	lastIndex   int
	seen        bool
	rejected    int
}

// NewBuilder creates a Builder that stamps points with index/frameRate.
func NewBuilder(frameRate float64) *Builder {
	return &Builder{frameRate: frameRate}
}

// Add records the detector outcome for the frame at index. Indices must be
// strictly increasing; an index at or before the previous one is rejected so
// that point times never go backwards. Add reports whether a point was
// appended.
func (b *Builder) Add(index int, det detect.Detection, ok bool) bool {
	if b.seen && index <= b.lastIndex {
		b.rejected++
		return false
	}
	b.seen = true
	b.lastIndex = index
	if !ok {
		return false
	}
	var t float64
	if b.frameRate > 0 {
		t = float64(index) / b.frameRate
	}
	b.points = append(b.points, Point{X: det.X, Y: det.Y, Time: t})
	b.confidences = append(b.confidences, det.Confidence)
	return true
}

// Points returns the trajectory built so far. The slice is never nil.
func (b *Builder) Points() []Point {
	if b.points == nil {
		return []Point{}
	}
	return b.points
}

// Confidences returns the raw confidence of every accepted detection.
func (b *Builder) Confidences() []float64 {
	return b.confidences
}

// Rejected is the number of out-of-order frames ignored.
func (b *Builder) Rejected() int {
	return b.rejected
}
