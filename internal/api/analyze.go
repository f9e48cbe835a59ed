package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/banshee-data/rally.report/internal/frames"
	"github.com/banshee-data/rally.report/internal/httputil"
	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/trajectory"
)

type analyzeRequest struct {
	VideoURL  string `json:"video_url"`
	VideoName string `json:"video_name"`
	VideoID   string `json:"video_id"`
}

// analysisResponse is the summary plus the names of the output video.
// No annotated video is rendered, so the URL is the source URL.
type analysisResponse struct {
	trajectory.Summary
	ProcessedVideoURL  string `json:"processed_video_url,omitempty"`
	ProcessedVideoName string `json:"processed_video_name,omitempty"`
}

// runError carries the HTTP status a failed run should be reported with.
type runError struct {
	status int
	msg    string
	err    error
}

func (e *runError) Error() string { return fmt.Sprintf("%s: %v", e.msg, e.err) }
func (e *runError) Unwrap() error { return e.err }

func statusOf(err error) int {
	var re *runError
	if errors.As(err, &re) {
		return re.status
	}
	return http.StatusInternalServerError
}

// runVideo downloads url, analyzes it and removes the download.
func (s *Server) runVideo(ctx context.Context, url string) (trajectory.Result, error) {
	path, cleanup, err := s.fetcher.Download(ctx, url)
	if err != nil {
		return trajectory.Result{}, &runError{http.StatusBadRequest, "Failed to download video", err}
	}
	defer cleanup()

	src, err := s.open(path)
	if errors.Is(err, frames.ErrNoFrames) {
		logf("no decodable frames in %s, reporting an empty run: %v", url, err)
		src, err = frames.Empty(DefaultFrameRate), nil
	}
	if err != nil {
		return trajectory.Result{}, &runError{http.StatusInternalServerError, "Error analyzing video", err}
	}
	defer src.Close()

	done := s.metrics.RunStarted()
	start := s.clock.Now()
	res := s.analyzer.Analyze(ctx, src, s.detector)
	done(res, s.clock.Since(start))

	if res.Err != nil {
		status := http.StatusInternalServerError
		if errors.Is(res.Err, trajectory.ErrDetectorRequired) {
			status = http.StatusServiceUnavailable
		}
		return res, &runError{status, "Error analyzing video", res.Err}
	}
	return res, nil
}

// handleAnalyzeVideo runs an analysis synchronously and returns the summary.
func (s *Server) handleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := httputil.DecodeJSONBody(r, &req, maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.VideoURL == "" {
		httputil.BadRequest(w, "video_url is required")
		return
	}
	logf("received analysis request for video: %s", req.VideoName)

	res, err := s.runVideo(r.Context(), req.VideoURL)
	if err != nil {
		logf("analysis of %s failed: %v", req.VideoName, err)
		httputil.WriteJSONError(w, statusOf(err), err.Error())
		return
	}

	logf("analysis completed for video: %s", req.VideoName)
	httputil.WriteJSONOK(w, analysisResponse{
		Summary:            res.Summary,
		ProcessedVideoURL:  req.VideoURL,
		ProcessedVideoName: storage.ProcessedVideoName(req.VideoName),
	})
}

type processRequest struct {
	VideoID string `json:"videoId"`
}

// handleProcessVideo runs a stored pending analysis to completion before
// responding.
func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := httputil.DecodeJSONBody(r, &req, maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.VideoID == "" {
		httputil.BadRequest(w, "videoId is required")
		return
	}

	a, err := s.store.Get(r.Context(), req.VideoID)
	if err != nil {
		s.writeStoreError(w, "get", err)
		return
	}
	if err := s.process(r.Context(), a); err != nil {
		if errors.Is(err, storage.ErrInvalidTransition) {
			httputil.WriteJSONError(w, http.StatusConflict, "analysis is not pending")
			return
		}
		httputil.WriteJSONError(w, statusOf(err), err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"success": true})
}

// process moves a pending run through processing to completed or failed.
// Record updates are not cancelled with ctx so an interrupted run is still
// closed out.
func (s *Server) process(ctx context.Context, a *storage.Analysis) error {
	writeCtx := context.WithoutCancel(ctx)

	if err := s.store.UpdateStatus(writeCtx, a.ID, storage.StatusProcessing); err != nil {
		s.metrics.RecordStoreError("update_status")
		return err
	}
	s.publish(a.ID, storage.StatusProcessing, "")
	logf("processing analysis %s (%s)", a.ID, a.VideoName)

	res, err := s.runVideo(ctx, a.VideoURL)
	if err != nil {
		logf("analysis %s failed: %v", a.ID, err)
		if ferr := s.store.Fail(writeCtx, a.ID, err.Error()); ferr != nil {
			s.metrics.RecordStoreError("fail")
			logf("failed to mark analysis %s failed: %v", a.ID, ferr)
		}
		s.publish(a.ID, storage.StatusFailed, err.Error())
		return err
	}

	summary := res.Summary
	if s.sink != nil && len(summary.TrajectoryData) > 0 {
		if err := s.sink.InsertPoints(writeCtx, a.ID, summary.TrajectoryData); err != nil {
			s.metrics.RecordStoreError("insert_points")
			logf("failed to export trajectory for %s: %v", a.ID, err)
		}
	}
	if err := s.store.Complete(writeCtx, a.ID, &summary); err != nil {
		s.metrics.RecordStoreError("complete")
		logf("failed to store results for %s: %v", a.ID, err)
		return err
	}
	s.publish(a.ID, storage.StatusCompleted, "")
	logf("analysis %s complete: %d bounces, %d points", a.ID, summary.TotalBounces, len(summary.TrajectoryData))
	return nil
}
