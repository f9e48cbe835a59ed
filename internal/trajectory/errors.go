package trajectory

import "errors"

var (
	// ErrDetectorRequired is returned when the run requires a working
	// detector and none is available.
	ErrDetectorRequired = errors.New("ball detector required but unavailable")

	// ErrNoSource is returned when Analyze is called without a frame source.
	ErrNoSource = errors.New("no frame source")
)
