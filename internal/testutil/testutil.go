// Package testutil provides shared test helpers and fixtures.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/rally.report/internal/trajectory"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewJSONRequest creates a test request whose body is body encoded as JSON.
// A nil body sends no payload.
func NewJSONRequest(t testing.TB, method, path string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes the recorded response body into v.
func DecodeJSON(t testing.TB, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// SampleSummary returns a small completed-run summary with one bounce.
func SampleSummary() *trajectory.Summary {
	return &trajectory.Summary{
		TotalBounces:            1,
		AverageSpeed:            15.76,
		MaxSpeed:                17.4,
		MinSpeed:                11.36,
		ProcessingTimeSeconds:   0.412,
		FramesAnalyzed:          7,
		BallDetectionConfidence: 0.78,
		TrajectoryData: []trajectory.Point{
			{X: 100, Y: 100, Time: 0},
			{X: 150, Y: 150, Time: 0.2},
			{X: 200, Y: 100, Time: 0.4},
		},
		BounceIndices: []int{1},
		SpeedSamples:  2,
		FramesDecoded: 14,
	}
}
