// Package fetch downloads source videos to scratch files for analysis.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/banshee-data/rally.report/internal/config"
	"github.com/banshee-data/rally.report/internal/fsutil"
	"github.com/banshee-data/rally.report/internal/httputil"
	"github.com/banshee-data/rally.report/internal/monitoring"
	"github.com/banshee-data/rally.report/internal/security"
)

var logf = monitoring.Component("fetch")

var (
	// ErrTooLarge is returned when the body exceeds MaxBytes.
	ErrTooLarge = errors.New("video exceeds download limit")
	// ErrNoVideo is returned when an HTML page links no video.
	ErrNoVideo = errors.New("page does not reference a video")
)

// StatusError reports a non-2xx download response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
}

// maxPageBytes caps how much of an HTML landing page is parsed.
const maxPageBytes = 2 << 20

// Fetcher downloads videos over HTTP.
type Fetcher struct {
	Client httputil.HTTPClient
	FS     fsutil.FileSystem
	// TempDir is passed to CreateTemp; empty uses the system default.
	TempDir  string
	MaxBytes int64
	Timeout  time.Duration
}

// New returns a Fetcher on the host filesystem with limits taken from cfg.
func New(client httputil.HTTPClient, cfg *config.AnalysisConfig) *Fetcher {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	return &Fetcher{
		Client:   client,
		FS:       fsutil.OSFileSystem{},
		MaxBytes: cfg.GetMaxDownloadBytes(),
		Timeout:  cfg.GetDownloadTimeout(),
	}
}

// Download streams the video at rawURL into a temporary .mp4 file and
// returns its path. The caller must call cleanup once the file is no longer
// needed. An HTML response is treated as a landing page: the first video it
// links is downloaded instead.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (path string, cleanup func(), err error) {
	u, err := security.ValidateVideoURL(rawURL)
	if err != nil {
		return "", nil, err
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	return f.download(ctx, u, true)
}

func (f *Fetcher) download(ctx context.Context, u *url.URL, followPage bool) (string, func(), error) {
	resp, err := f.get(ctx, u)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if isHTML(resp.Header.Get("Content-Type")) {
		if !followPage {
			return "", nil, fmt.Errorf("%s: %w", u, ErrNoVideo)
		}
		page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if err != nil {
			return "", nil, fmt.Errorf("read page %s: %w", u, err)
		}
		videoURL, err := ResolveVideoURL(bytes.NewReader(page), u)
		if err != nil {
			return "", nil, err
		}
		logf("resolved %s to %s", u, videoURL)
		return f.download(ctx, videoURL, false)
	}

	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return "", nil, fmt.Errorf("%s is %d bytes: %w", u, resp.ContentLength, ErrTooLarge)
	}
	return f.save(resp.Body, u)
}

func (f *Fetcher) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (f *Fetcher) save(body io.Reader, u *url.URL) (string, func(), error) {
	fsys := f.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	out, err := fsys.CreateTemp(f.TempDir, "rally-*.mp4")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	name := out.Name()
	cleanup := func() {
		if err := fsys.Remove(name); err != nil {
			logf("failed to remove %s: %v", name, err)
		}
	}

	src := body
	if f.MaxBytes > 0 {
		src = io.LimitReader(body, f.MaxBytes+1)
	}
	n, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", u, copyErr)
	case closeErr != nil:
		cleanup()
		return "", nil, fmt.Errorf("write %s: %w", name, closeErr)
	case f.MaxBytes > 0 && n > f.MaxBytes:
		cleanup()
		return "", nil, fmt.Errorf("%s exceeds %d bytes: %w", u, f.MaxBytes, ErrTooLarge)
	}

	logf("downloaded %d bytes from %s to %s", n, u.Host, name)
	return name, cleanup, nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "text/html" || mt == "application/xhtml+xml")
}
