package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// Defaults used when a field is omitted from the JSON file.
const (
	DefaultFrameStride           = 2
	DefaultMaxFrames             = 100
	DefaultResolutionScale       = 1.0
	DefaultConfidenceThreshold   = 0.3
	DefaultMinBounceProminencePx = 20.0
	DefaultMaxPlausibleSpeedKMPH = 200.0
	DefaultSpeedDecimals         = 2
	DefaultConfidenceDecimals    = 2
	DefaultWorkers               = 1
	DefaultDetectorTimeout       = 5 * time.Second
	DefaultDownloadTimeout       = 60 * time.Second
	DefaultMaxDownloadBytes      = 500 << 20
)

// AnalysisConfig holds the tunable parameters of a trajectory analysis run.
// Every field is optional; the Get* accessors supply defaults so partial
// files are safe.
type AnalysisConfig struct {
	// Sampler
	FrameStride     *int     `json:"frame_stride,omitempty"`
	MaxFrames       *int     `json:"max_frames,omitempty"`
	ResolutionScale *float64 `json:"resolution_scale,omitempty"`

	// Detection gate
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	RequireDetector     *bool    `json:"require_detector,omitempty"`
	DetectorTimeout     *string  `json:"detector_timeout,omitempty"` // duration string like "5s"

	// Speed and bounce estimation
	MetersPerPixel        *float64 `json:"meters_per_pixel,omitempty"`
	MinBounceProminencePx *float64 `json:"min_bounce_prominence_px,omitempty"`
	MaxPlausibleSpeedKMPH *float64 `json:"max_plausible_speed_kmh,omitempty"`

	// Presentation
	SpeedDecimals      *int `json:"speed_decimals,omitempty"`
	ConfidenceDecimals *int `json:"confidence_decimals,omitempty"`

	// Throughput
	Workers *int `json:"workers,omitempty"`

	// Video download
	DownloadTimeout  *string `json:"download_timeout,omitempty"`
	MaxDownloadBytes *int64  `json:"max_download_bytes,omitempty"`
}

// EmptyAnalysisConfig returns an AnalysisConfig with all fields unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.FrameStride != nil && *c.FrameStride < 1 {
		return fmt.Errorf("frame_stride must be >= 1, got %d", *c.FrameStride)
	}
	if c.MaxFrames != nil && *c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must be non-negative, got %d", *c.MaxFrames)
	}
	if c.ResolutionScale != nil {
		if *c.ResolutionScale <= 0 || *c.ResolutionScale > 1 {
			return fmt.Errorf("resolution_scale must be in (0, 1], got %f", *c.ResolutionScale)
		}
	}
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.MetersPerPixel != nil && *c.MetersPerPixel <= 0 {
		return fmt.Errorf("meters_per_pixel must be positive, got %f", *c.MetersPerPixel)
	}
	if c.MinBounceProminencePx != nil && *c.MinBounceProminencePx < 0 {
		return fmt.Errorf("min_bounce_prominence_px must be non-negative, got %f", *c.MinBounceProminencePx)
	}
	if c.MaxPlausibleSpeedKMPH != nil {
		if v := *c.MaxPlausibleSpeedKMPH; v <= 0 || v > DefaultMaxPlausibleSpeedKMPH {
			return fmt.Errorf("max_plausible_speed_kmh must be in (0, %g], got %f", DefaultMaxPlausibleSpeedKMPH, v)
		}
	}
	if c.SpeedDecimals != nil && *c.SpeedDecimals < 0 {
		return fmt.Errorf("speed_decimals must be non-negative, got %d", *c.SpeedDecimals)
	}
	if c.ConfidenceDecimals != nil && *c.ConfidenceDecimals < 0 {
		return fmt.Errorf("confidence_decimals must be non-negative, got %d", *c.ConfidenceDecimals)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", *c.Workers)
	}
	if c.DetectorTimeout != nil && *c.DetectorTimeout != "" {
		if _, err := time.ParseDuration(*c.DetectorTimeout); err != nil {
			return fmt.Errorf("invalid detector_timeout '%s': %w", *c.DetectorTimeout, err)
		}
	}
	if c.DownloadTimeout != nil && *c.DownloadTimeout != "" {
		if _, err := time.ParseDuration(*c.DownloadTimeout); err != nil {
			return fmt.Errorf("invalid download_timeout '%s': %w", *c.DownloadTimeout, err)
		}
	}
	if c.MaxDownloadBytes != nil && *c.MaxDownloadBytes <= 0 {
		return fmt.Errorf("max_download_bytes must be positive, got %d", *c.MaxDownloadBytes)
	}
	return nil
}

// GetFrameStride returns the frame_stride value or the default.
func (c *AnalysisConfig) GetFrameStride() int {
	if c.FrameStride == nil {
		return DefaultFrameStride
	}
	return *c.FrameStride
}

// GetMaxFrames returns the max_frames value or the default. Zero means no ceiling.
func (c *AnalysisConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return DefaultMaxFrames
	}
	return *c.MaxFrames
}

// GetResolutionScale returns the resolution_scale value or the default.
func (c *AnalysisConfig) GetResolutionScale() float64 {
	if c.ResolutionScale == nil {
		return DefaultResolutionScale
	}
	return *c.ResolutionScale
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *AnalysisConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

// GetRequireDetector returns the require_detector value or the default.
func (c *AnalysisConfig) GetRequireDetector() bool {
	if c.RequireDetector == nil {
		return false
	}
	return *c.RequireDetector
}

// GetDetectorTimeout parses and returns the DetectorTimeout as a time.Duration.
func (c *AnalysisConfig) GetDetectorTimeout() time.Duration {
	return parseDurationOr(c.DetectorTimeout, DefaultDetectorTimeout)
}

// GetMetersPerPixel returns meters_per_pixel, or 0 to select the package
// constant in units.
func (c *AnalysisConfig) GetMetersPerPixel() float64 {
	if c.MetersPerPixel == nil {
		return 0
	}
	return *c.MetersPerPixel
}

// GetMinBounceProminencePx returns the min_bounce_prominence_px value or the default.
func (c *AnalysisConfig) GetMinBounceProminencePx() float64 {
	if c.MinBounceProminencePx == nil {
		return DefaultMinBounceProminencePx
	}
	return *c.MinBounceProminencePx
}

// GetMaxPlausibleSpeedKMPH returns the max_plausible_speed_kmh value or the default.
func (c *AnalysisConfig) GetMaxPlausibleSpeedKMPH() float64 {
	if c.MaxPlausibleSpeedKMPH == nil {
		return DefaultMaxPlausibleSpeedKMPH
	}
	return *c.MaxPlausibleSpeedKMPH
}

// GetSpeedDecimals returns the speed_decimals value or the default.
func (c *AnalysisConfig) GetSpeedDecimals() int {
	if c.SpeedDecimals == nil {
		return DefaultSpeedDecimals
	}
	return *c.SpeedDecimals
}

// GetConfidenceDecimals returns the confidence_decimals value or the default.
func (c *AnalysisConfig) GetConfidenceDecimals() int {
	if c.ConfidenceDecimals == nil {
		return DefaultConfidenceDecimals
	}
	return *c.ConfidenceDecimals
}

// GetWorkers returns the workers value or the default.
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetDownloadTimeout parses and returns the DownloadTimeout as a time.Duration.
func (c *AnalysisConfig) GetDownloadTimeout() time.Duration {
	return parseDurationOr(c.DownloadTimeout, DefaultDownloadTimeout)
}

// GetMaxDownloadBytes returns the max_download_bytes value or the default.
func (c *AnalysisConfig) GetMaxDownloadBytes() int64 {
	if c.MaxDownloadBytes == nil {
		return DefaultMaxDownloadBytes
	}
	return *c.MaxDownloadBytes
}

func parseDurationOr(s *string, fallback time.Duration) time.Duration {
	if s == nil || *s == "" {
		return fallback
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fallback
	}
	return d
}
