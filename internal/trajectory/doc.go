// Package trajectory turns a stream of per-frame ball detections into speed,
// bounce and confidence statistics.
//
// The pipeline is
//
//	Source -> Sampler -> Detector -> Builder -> {SpeedEstimator, BounceDetector} -> Aggregate
//
// Analyzer.Analyze drives it end to end. Every run owns its sampler cursor and
// accumulators, so one Analyzer may serve concurrent runs.
package trajectory
