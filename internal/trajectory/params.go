package trajectory

import "github.com/banshee-data/rally.report/internal/config"

// Params are the tunables of an Analyzer.
type Params struct {
	FrameStride           int
	MaxFrames             int
	ResolutionScale       float64
	ConfidenceThreshold   float64
	RequireDetector       bool
	MetersPerPixel        float64
	MinBounceProminencePx float64
	MaxPlausibleSpeedKMPH float64
	SpeedDecimals         int
	ConfidenceDecimals    int
	Workers               int
}

// DefaultParams returns the canonical parameter set: every second frame, at
// most 100 detector calls, confidence above 0.3, 20 px bounce prominence.
func DefaultParams() Params {
	return ParamsFromConfig(config.EmptyAnalysisConfig())
}

// ParamsFromConfig resolves cfg, filling unset fields with defaults.
// A nil cfg yields DefaultParams.
func ParamsFromConfig(cfg *config.AnalysisConfig) Params {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	return Params{
		FrameStride:           cfg.GetFrameStride(),
		MaxFrames:             cfg.GetMaxFrames(),
		ResolutionScale:       cfg.GetResolutionScale(),
		ConfidenceThreshold:   cfg.GetConfidenceThreshold(),
		RequireDetector:       cfg.GetRequireDetector(),
		MetersPerPixel:        cfg.GetMetersPerPixel(),
		MinBounceProminencePx: cfg.GetMinBounceProminencePx(),
		MaxPlausibleSpeedKMPH: cfg.GetMaxPlausibleSpeedKMPH(),
		SpeedDecimals:         cfg.GetSpeedDecimals(),
		ConfidenceDecimals:    cfg.GetConfidenceDecimals(),
		Workers:               cfg.GetWorkers(),
	}
}
