//go:build gocv

package frames

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

func init() {
	openVideo = func(path string) (Source, error) {
		return NewVideoSource(path)
	}
}

// VideoSource decodes a video container with OpenCV.
type VideoSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	fps     float64
	count   int
	next    int
}

// NewVideoSource opens path. A file OpenCV cannot open returns ErrNoFrames.
func NewVideoSource(path string) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %s: %w", path, ErrNoFrames)
	}
	return &VideoSource{
		capture: capture,
		mat:     gocv.NewMat(),
		fps:     capture.Get(gocv.VideoCaptureFPS),
		count:   int(capture.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

// Next decodes the next frame. A failed read is treated as end of stream.
func (s *VideoSource) Next() (Frame, error) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return Frame{}, io.EOF
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("convert frame %d: %w", s.next, err)
	}
	f := Frame{Index: s.next, Image: img}
	s.next++
	return f, nil
}

// FrameRate returns the container's frame rate.
func (s *VideoSource) FrameRate() float64 { return s.fps }

// FrameCount returns the container's advertised frame count.
func (s *VideoSource) FrameCount() int { return s.count }

// Close releases the capture and its scratch matrix.
func (s *VideoSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
