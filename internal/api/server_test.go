package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/monitoring"
	"github.com/banshee-data/rally.report/internal/testutil"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		detector detect.Detector
		loaded   bool
	}{
		{"detector ready", detect.Lookup{}, true},
		{"no detector", nil, false},
		{"unavailable", detect.Unavailable{Reason: "no weights"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withDetector(tt.detector))
			rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
			testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

			var body healthResponse
			testutil.DecodeJSON(t, rec, &body)
			assert.Equal(t, "healthy", body.Status)
			assert.Equal(t, tt.loaded, body.ModelLoaded)
			assert.Equal(t, 1748779200.0, body.Timestamp)
		})
	}
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]interface{}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, "Tennis Ball Analysis API", body["message"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodOptions, "/analyze-video", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNoContent)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "apikey")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/analyze-video", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(testutil.NewJSONRequest(t, http.MethodPost, "/analyze-video", analyzeRequest{
		VideoURL: "https://cdn.example.com/rally.mp4", VideoName: "rally.mp4",
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	assert.Contains(t, body, `rally_analysis_runs_total{outcome="completed"} 1`)
	assert.Contains(t, body, "rally_pipeline_bounces_total 2")
	assert.Contains(t, body, "rally_pipeline_frames_analyzed_total 7")
}

func TestAdminRoutes(t *testing.T) {
	admin := &fakeAdmin{}
	env := newTestEnv(t, withAdmin(admin))
	assert.True(t, admin.attached)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil))
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesError(t *testing.T) {
	s := NewServer(Config{Admin: &fakeAdmin{err: errBoom}})
	defer s.Close()
	_, err := s.Handler()
	assert.ErrorIs(t, err, errBoom)
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		var buf bytes.Buffer
		buf.WriteString(format)
		for _, a := range v {
			if s, ok := a.(string); ok {
				buf.WriteString(" " + s)
			}
		}
		lines = append(lines, buf.String())
	})
	defer monitoring.SetLogger(nil)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew?kind=earl-grey", nil))

	testutil.AssertStatusCode(t, rec.Code, http.StatusTeapot)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "[api] "))
	assert.Contains(t, lines[0], "/brew?kind=earl-grey")
	assert.Contains(t, lines[0], "418")
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{302, colorYellow + "302" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{503, colorBoldRed + "503" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCodeColor(tt.code))
	}
}

func TestDefaultOpenSource(t *testing.T) {
	s := NewServer(Config{Analyzer: trajectory.NewAnalyzer(trajectory.DefaultParams())})
	defer s.Close()
	_, err := s.open("/definitely/not/here")
	assert.Error(t, err)
}
