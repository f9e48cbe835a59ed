package frames

import (
	"errors"
	"image"
	"io"
)

// ErrNoFrames is returned by Open when the input holds no decodable frames.
// Callers treat it as an empty video and analyze Empty in its place.
var ErrNoFrames = errors.New("no decodable frames")

// Frame is one decoded raster image and its position in decode order.
// Frames are owned by the Source until handed to the caller and are not
// retained by the pipeline after detection.
type Frame struct {
	Index int
	Image image.Image
}

// Timestamp returns the frame time in seconds for the given rate.
// A non-positive rate yields 0.
func (f Frame) Timestamp(frameRate float64) float64 {
	if frameRate <= 0 {
		return 0
	}
	return float64(f.Index) / frameRate
}

// Source produces frames in decode order.
type Source interface {
	// Next returns the next frame, or io.EOF once the stream is exhausted.
	Next() (Frame, error)
	// FrameRate is the nominal rate in frames per second.
	FrameRate() float64
	// FrameCount is the container's advertised frame count. Advisory only.
	FrameCount() int
	// Close releases decoder resources.
	Close() error
}

// SliceSource serves frames from memory.
type SliceSource struct {
	images []image.Image
	fps    float64
	next   int
}

// NewSliceSource creates a SliceSource over images at fps frames per second.
// A nil entry is a frame whose image is missing; it still occupies an index.
func NewSliceSource(images []image.Image, fps float64) *SliceSource {
	return &SliceSource{images: images, fps: fps}
}

// Next returns the next frame or io.EOF.
func (s *SliceSource) Next() (Frame, error) {
	if s.next >= len(s.images) {
		return Frame{}, io.EOF
	}
	f := Frame{Index: s.next, Image: s.images[s.next]}
	s.next++
	return f, nil
}

// FrameRate returns the configured rate.
func (s *SliceSource) FrameRate() float64 { return s.fps }

// FrameCount returns the number of frames held.
func (s *SliceSource) FrameCount() int { return len(s.images) }

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }

// Blank returns n uniform frames of the given size, handy for driving a
// pipeline whose detector ignores pixel content.
func Blank(n, width, height int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = image.NewGray(image.Rect(0, 0, width, height))
	}
	return out
}

// Empty returns a source with no frames. It stands in for unreadable input so
// that "no video content" flows through the pipeline as an empty run.
func Empty(fps float64) *SliceSource {
	return NewSliceSource(nil, fps)
}
