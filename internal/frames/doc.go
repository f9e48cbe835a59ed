// Package frames decodes video content into an ordered stream of raster
// frames for the trajectory pipeline.
//
// A Source is lazy, finite and non-restartable. Frame indices follow decode
// order, so a frame's timestamp is Index / FrameRate. FrameCount is advisory:
// container metadata is often wrong and callers must not rely on it.
//
// Implementations:
//   - SliceSource: in-memory frames, used for synthetic input and tests.
//   - DirectorySource: a numbered PNG/JPEG image sequence at a fixed rate.
//   - VideoSource: container decoding through OpenCV (build tag "gocv").
package frames
