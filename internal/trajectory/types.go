package trajectory

// Point is one accepted ball position in original-frame pixel coordinates.
// Time is seconds from the start of the video.
type Point struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Time float64 `json:"time"`
}

// Summary is the externally visible result of one analysis run. Speeds are in
// km/h. Rounding is applied for presentation only.
type Summary struct {
	TotalBounces            int     `json:"total_bounces"`
	AverageSpeed            float64 `json:"average_speed"`
	MaxSpeed                float64 `json:"max_speed"`
	MinSpeed                float64 `json:"min_speed"`
	ProcessingTimeSeconds   float64 `json:"processing_time_seconds"`
	FramesAnalyzed          int     `json:"frames_analyzed"`
	BallDetectionConfidence float64 `json:"ball_detection_confidence"`
	TrajectoryData          []Point `json:"trajectory_data"`

	BounceIndices  []int `json:"bounce_indices,omitempty"`
	SpeedSamples   int   `json:"speed_samples"`
	FramesDecoded  int   `json:"frames_decoded"`
	DetectorErrors int   `json:"detector_errors,omitempty"`
	Partial        bool  `json:"partial,omitempty"`
}

// Result is the outcome of Analyze. Err is set only for hard failures, in
// which case Summary is the zero value. Partial marks a run whose frame
// consumption was cut short; its Summary is still valid.
type Result struct {
	Summary Summary
	Err     error
	Partial bool
}

// OK reports whether the run produced a summary.
func (r Result) OK() bool {
	return r.Err == nil
}
