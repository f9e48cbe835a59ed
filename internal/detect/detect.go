// Package detect defines the per-frame ball detector capability consumed by
// the trajectory pipeline, plus the adapters that back it.
//
// A Detector reports at most one ball position per frame. The pipeline
// treats a detector error exactly like "nothing found in this frame"; a
// detector that could not be loaded at all is represented by Unavailable so
// that analyses still run and report zero detections.
package detect

import (
	"context"
	"image"
)

// SportsBallClass is the COCO class id for "sports ball".
const SportsBallClass = 32

// DefaultConfidenceThreshold is the minimum confidence (exclusive) for a
// detection to be accepted.
const DefaultConfidenceThreshold = 0.3

// Detection is a candidate ball position in frame pixel coordinates with a
// confidence in [0, 1].
type Detection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Detector locates the ball in one frame. ok is false when nothing was found.
// Implementations must be safe for concurrent use and free of side effects
// visible to the pipeline.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (det Detection, ok bool, err error)
}

// Func adapts a plain function to the Detector interface.
type Func func(ctx context.Context, img image.Image) (Detection, bool, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, img image.Image) (Detection, bool, error) {
	return f(ctx, img)
}

// Unavailable is the degraded detector used when no model could be loaded.
// It never finds anything and never fails.
type Unavailable struct {
	Reason string
}

// Detect always reports no detection.
func (Unavailable) Detect(context.Context, image.Image) (Detection, bool, error) {
	return Detection{}, false, nil
}

// IsUnavailable reports whether d is nil or the degraded Unavailable detector.
func IsUnavailable(d Detector) bool {
	if d == nil {
		return true
	}
	switch d.(type) {
	case Unavailable, *Unavailable:
		return true
	}
	return false
}

// Gate drops detections whose confidence does not exceed Threshold.
type Gate struct {
	Detector  Detector
	Threshold float64
}

// Detect forwards to the wrapped detector and applies the confidence gate.
func (g Gate) Detect(ctx context.Context, img image.Image) (Detection, bool, error) {
	det, ok, err := g.Detector.Detect(ctx, img)
	if err != nil || !ok {
		return Detection{}, false, err
	}
	if det.Confidence <= g.Threshold {
		return Detection{}, false, nil
	}
	return det, true, nil
}

// Lookup is a fixed table of detections keyed by frame image identity.
// Frames absent from the table have no detection. It is deterministic under
// concurrent use, which makes it suitable for replaying recorded detector
// output against the same decoded frames.
type Lookup map[image.Image]Detection

// Detect returns the recorded detection for img, if any.
func (l Lookup) Detect(_ context.Context, img image.Image) (Detection, bool, error) {
	det, ok := l[img]
	return det, ok, nil
}
