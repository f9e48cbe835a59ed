package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/google/uuid"

	"github.com/banshee-data/rally.report/internal/httputil"
	"github.com/banshee-data/rally.report/internal/report"
	"github.com/banshee-data/rally.report/internal/security"
	"github.com/banshee-data/rally.report/internal/storage"
)

const defaultListLimit = 50

type createRequest struct {
	VideoURL  string `json:"video_url"`
	VideoName string `json:"video_name"`
	VideoSize int64  `json:"video_size,omitempty"`
}

type analysisView struct {
	*storage.Analysis
	ProcessedVideoURL  string `json:"processed_video_url,omitempty"`
	ProcessedVideoName string `json:"processed_video_name,omitempty"`
}

func viewOf(a *storage.Analysis) analysisView {
	v := analysisView{Analysis: a}
	if a.Status == storage.StatusCompleted {
		v.ProcessedVideoURL = a.VideoURL
		v.ProcessedVideoName = storage.ProcessedVideoName(a.VideoName)
	}
	return v
}

// writeStoreError maps storage errors to HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httputil.NotFound(w, "analysis not found")
	case errors.Is(err, storage.ErrInvalidInput):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, storage.ErrInvalidTransition), errors.Is(err, storage.ErrDuplicateKey):
		httputil.WriteJSONError(w, http.StatusConflict, err.Error())
	default:
		s.metrics.RecordStoreError(op)
		logf("store %s failed: %v", op, err)
		httputil.InternalServerError(w, "storage error")
	}
}

// videoNameFromURL is the last path element of u, made safe for use as a
// file name.
func videoNameFromURL(u *url.URL) string {
	return security.SanitizeFilename(path.Base(u.Path))
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.DecodeJSONBody(r, &req, maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	u, err := security.ValidateVideoURL(req.VideoURL)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	name := req.VideoName
	if name == "" {
		name = videoNameFromURL(u)
	}

	now := s.clock.Now().UTC()
	a := &storage.Analysis{
		ID:        uuid.NewString(),
		VideoName: name,
		VideoURL:  u.String(),
		VideoSize: req.VideoSize,
		Status:    storage.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(r.Context(), a); err != nil {
		s.writeStoreError(w, "create", err)
		return
	}
	s.publish(a.ID, storage.StatusPending, "")

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		_ = s.process(s.ctx, a)
	}()

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"id":     a.ID,
		"status": string(storage.StatusPending),
	})
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	list, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, "list", err)
		return
	}
	views := make([]analysisView, len(list))
	for i, a := range list {
		views[i] = viewOf(a)
	}
	httputil.WriteJSONOK(w, views)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, "get", err)
		return
	}
	httputil.WriteJSONOK(w, viewOf(a))
}

func (s *Server) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// completedAnalysis loads a run that has a summary, writing an error
// response and returning nil otherwise.
func (s *Server) completedAnalysis(w http.ResponseWriter, r *http.Request) *storage.Analysis {
	a, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, "get", err)
		return nil
	}
	if a.Summary == nil {
		httputil.WriteJSONError(w, http.StatusConflict, "analysis has no results yet")
		return nil
	}
	return a
}

func (s *Server) analysisChart(w http.ResponseWriter, r *http.Request) {
	a := s.completedAnalysis(w, r)
	if a == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.Chart(&buf, *a.Summary, report.ChartOptions{Title: a.VideoName}); err != nil {
		httputil.InternalServerError(w, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) analysisPlot(w http.ResponseWriter, r *http.Request) {
	a := s.completedAnalysis(w, r)
	if a == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.Plot(&buf, *a.Summary, report.PlotOptions{Title: a.VideoName}); err != nil {
		httputil.InternalServerError(w, "failed to render plot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
