package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertStatusCode(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestNewJSONRequest(t *testing.T) {
	req := NewJSONRequest(t, http.MethodPost, "/analyze-video", map[string]string{"video_name": "a.mp4"})
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/analyze-video", req.URL.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	empty := NewJSONRequest(t, http.MethodGet, "/health", nil)
	assert.Empty(t, empty.Header.Get("Content-Type"))
}

func TestDecodeJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Body.WriteString(`{"status":"ok"}`)
	var out map[string]string
	DecodeJSON(t, rec, &out)
	assert.Equal(t, "ok", out["status"])
}

func TestSampleSummary(t *testing.T) {
	s := SampleSummary()
	require.Len(t, s.TrajectoryData, 3)
	assert.Equal(t, []int{1}, s.BounceIndices)
	assert.Equal(t, s.TotalBounces, len(s.BounceIndices))
	assert.NotSame(t, s, SampleSummary())
}
