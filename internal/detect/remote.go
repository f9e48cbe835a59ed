package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/rally.report/internal/httputil"
	"github.com/banshee-data/rally.report/internal/monitoring"
)

var logf = monitoring.Component("detect")

// RemoteConfig configures a RemoteDetector.
type RemoteConfig struct {
	// Endpoint is the base URL of the inference service, e.g. http://localhost:8500.
	Endpoint string
	// ClassID restricts detections to one class. Defaults to SportsBallClass.
	ClassID int
	// Timeout bounds each detect call. Zero means no per-call timeout.
	Timeout time.Duration
	// JPEGQuality used when uploading frames. Defaults to 85.
	JPEGQuality int
}

// Box is one bounding box returned by the inference service.
type Box struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class"`
}

// Center returns the midpoint of the box.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

type detectResponse struct {
	Boxes []Box `json:"detections"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// RemoteDetector sends frames to an HTTP object-detection service and keeps
// the highest-confidence box of the configured class.
type RemoteDetector struct {
	cfg    RemoteConfig
	client httputil.HTTPClient
}

// NewRemoteDetector creates a RemoteDetector. client may be nil to use
// http.DefaultClient.
func NewRemoteDetector(cfg RemoteConfig, client httputil.HTTPClient) *RemoteDetector {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	if cfg.ClassID == 0 {
		cfg.ClassID = SportsBallClass
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 85
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &RemoteDetector{cfg: cfg, client: client}
}

// Detect uploads img as JPEG and returns the centre of the best box.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) (Detection, bool, error) {
	if img == nil {
		return Detection{}, false, nil
	}
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.cfg.JPEGQuality}); err != nil {
		return Detection{}, false, fmt.Errorf("encode frame: %w", err)
	}

	q := url.Values{}
	q.Set("classes", strconv.Itoa(d.cfg.ClassID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint+"/detect?"+q.Encode(), &buf)
	if err != nil {
		return Detection{}, false, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return Detection{}, false, fmt.Errorf("detect request: %w", err)
	}
	var out detectResponse
	if err := httputil.DecodeJSONResponse(resp, &out); err != nil {
		return Detection{}, false, fmt.Errorf("detect: %w", err)
	}

	best, ok := BestBox(out.Boxes, d.cfg.ClassID)
	if !ok {
		return Detection{}, false, nil
	}
	x, y := best.Center()
	return Detection{X: x, Y: y, Confidence: best.Confidence}, true, nil
}

// Health asks the service whether its model is loaded.
func (d *RemoteDetector) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.Endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	var h healthResponse
	if err := httputil.DecodeJSONResponse(resp, &h); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if !h.ModelLoaded {
		return fmt.Errorf("detector at %s reports model not loaded", d.cfg.Endpoint)
	}
	return nil
}

// BestBox returns the highest-confidence box of classID. Ties keep the first.
func BestBox(boxes []Box, classID int) (Box, bool) {
	var best Box
	found := false
	for _, b := range boxes {
		if b.ClassID != classID {
			continue
		}
		if !found || b.Confidence > best.Confidence {
			best = b
			found = true
		}
	}
	return best, found
}

// Connect builds a RemoteDetector for cfg and checks that it is usable. An
// empty endpoint or failed health check yields Unavailable so that callers
// run in degraded mode instead of failing.
func Connect(ctx context.Context, cfg RemoteConfig, client httputil.HTTPClient) Detector {
	if cfg.Endpoint == "" {
		logf("no detector endpoint configured; running without detections")
		return Unavailable{Reason: "no detector endpoint configured"}
	}
	d := NewRemoteDetector(cfg, client)
	if err := d.Health(ctx); err != nil {
		logf("detector unavailable: %v", err)
		return Unavailable{Reason: err.Error()}
	}
	logf("detector ready at %s", d.cfg.Endpoint)
	return d
}
