package trajectory

import (
	"image"

	"github.com/banshee-data/rally.report/internal/detect"
	"github.com/banshee-data/rally.report/internal/frames"
)

// Sampler decides which decoded frames are submitted to the detector.
// A frame is submitted when its index is a multiple of Stride and fewer
// than MaxFrames frames have been submitted so far. MaxFrames of zero
// disables the ceiling.
//
// Scale in (0, 1) downsizes frames before detection; positions are mapped
// back to original-frame pixels by Restore.
type Sampler struct {
	Stride    int
	MaxFrames int
	Scale     float64

	submitted int
}

// NewSampler returns a Sampler with a fresh cursor.
func NewSampler(stride, maxFrames int, scale float64) *Sampler {
	return &Sampler{Stride: stride, MaxFrames: maxFrames, Scale: scale}
}

// Submit reports whether the frame at index should go to the detector and
// counts it if so.
func (s *Sampler) Submit(index int) bool {
	if s.Exhausted() {
		return false
	}
	stride := s.Stride
	if stride < 1 {
		stride = 1
	}
	if index%stride != 0 {
		return false
	}
	s.submitted++
	return true
}

// Exhausted reports whether the work ceiling has been reached.
func (s *Sampler) Exhausted() bool {
	return s.MaxFrames > 0 && s.submitted >= s.MaxFrames
}

// Submitted is the number of frames handed to the detector so far.
func (s *Sampler) Submitted() int {
	return s.submitted
}

// Prepare returns the image to pass to the detector.
func (s *Sampler) Prepare(img image.Image) image.Image {
	return frames.Downscale(img, s.Scale)
}

// Restore maps a detection made on a prepared image back to original-frame
// coordinates.
func (s *Sampler) Restore(d detect.Detection) detect.Detection {
	d.X, d.Y = frames.Upscale(d.X, d.Y, s.Scale)
	return d
}
