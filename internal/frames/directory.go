package frames

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/rally.report/internal/security"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// DirectorySource reads an image sequence from a directory. Files are
// ordered by name, so zero-padded numbering (frame_00001.png) is expected.
type DirectorySource struct {
	dir   string
	files []string
	fps   float64
	next  int
}

// DirectoryOptions configures NewDirectorySource.
type DirectoryOptions struct {
	// FrameRate is the capture rate of the sequence. Required.
	FrameRate float64
	// SafeRoot, when set, confines the directory to this root.
	SafeRoot string
}

// NewDirectorySource lists the image files in dir.
func NewDirectorySource(dir string, opts DirectoryOptions) (*DirectorySource, error) {
	if opts.FrameRate <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %f", opts.FrameRate)
	}
	if opts.SafeRoot != "" {
		if err := security.ValidatePathWithinDirectory(dir, opts.SafeRoot); err != nil {
			return nil, fmt.Errorf("invalid frame directory: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	return &DirectorySource{dir: dir, files: files, fps: opts.FrameRate}, nil
}

// Next decodes the next image in name order.
func (s *DirectorySource) Next() (Frame, error) {
	if s.next >= len(s.files) {
		return Frame{}, io.EOF
	}
	idx := s.next
	s.next++

	path := filepath.Join(s.dir, s.files[idx])
	f, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("open frame %s: %w", s.files[idx], err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame %s: %w", s.files[idx], err)
	}
	return Frame{Index: idx, Image: img}, nil
}

// FrameRate returns the configured rate.
func (s *DirectorySource) FrameRate() float64 { return s.fps }

// FrameCount returns the number of image files found.
func (s *DirectorySource) FrameCount() int { return len(s.files) }

// Close is a no-op; files are closed after each decode.
func (s *DirectorySource) Close() error { return nil }
