package api

import (
	"net/http"

	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/httputil"
	"github.com/banshee-data/rally.report/internal/version"
)

type healthResponse struct {
	Status      string  `json:"status"`
	ModelLoaded bool    `json:"model_loaded"`
	Timestamp   float64 `json:"timestamp"`
	Version     string  `json:"version"`
}

// handleHealth always reports healthy; model_loaded tells clients whether
// analyses will find any ball.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	httputil.WriteJSONOK(w, healthResponse{
		Status:      "healthy",
		ModelLoaded: !detect.IsUnavailable(s.detector),
		Timestamp:   float64(now.UnixNano()) / 1e9,
		Version:     version.Version,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"message": "Tennis Ball Analysis API",
		"version": version.Version,
		"git_sha": version.GitSHA,
		"endpoints": map[string]string{
			"analyze":   "/analyze-video",
			"process":   "/process-video",
			"analyses":  "/api/analyses",
			"events":    "/ws/analyses",
			"health":    "/health",
			"metrics":   "/metrics",
			"sql_debug": "/debug/tailsql/",
		},
	})
}
