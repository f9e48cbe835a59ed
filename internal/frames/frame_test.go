package frames

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTimestamp(t *testing.T) {
	f := Frame{Index: 45}
	assert.InDelta(t, 1.5, f.Timestamp(30), 1e-12)
	assert.Equal(t, 0.0, f.Timestamp(0))
	assert.Equal(t, 0.0, f.Timestamp(-25))
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource(Blank(3, 4, 4), 25)
	assert.Equal(t, 25.0, src.FrameRate())
	assert.Equal(t, 3, src.FrameCount())

	for want := 0; want < 3; want++ {
		f, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, want, f.Index)
		assert.NotNil(t, f.Image)
	}
	_, err := src.Next()
	assert.ErrorIs(t, err, io.EOF)
	// Non-restartable: stays exhausted.
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestEmpty(t *testing.T) {
	src := Empty(30)
	_, err := src.Next()
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, 0, src.FrameCount())
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 200, G: 230, B: 40, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDirectorySource(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "frame_00002.png"), 8, 6)
	writePNG(t, filepath.Join(dir, "frame_00001.png"), 8, 6)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	src, err := NewDirectorySource(dir, DirectoryOptions{FrameRate: 30})
	require.NoError(t, err)
	assert.Equal(t, 2, src.FrameCount())
	assert.Equal(t, 30.0, src.FrameRate())

	f0, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, f0.Index)
	assert.Equal(t, 8, f0.Image.Bounds().Dx())

	f1, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, f1.Index)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestDirectorySource_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewDirectorySource(dir, DirectoryOptions{})
	assert.Error(t, err, "zero frame rate must be rejected")

	_, err = NewDirectorySource(filepath.Join(dir, "missing"), DirectoryOptions{FrameRate: 30})
	assert.Error(t, err)

	outside := t.TempDir()
	_, err = NewDirectorySource(outside, DirectoryOptions{FrameRate: 30, SafeRoot: dir})
	assert.Error(t, err, "directories outside the safe root must be rejected")
}

func TestDirectorySource_CorruptFrame(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_1.png"), []byte("not a png"), 0644))

	src, err := NewDirectorySource(dir, DirectoryOptions{FrameRate: 30})
	require.NoError(t, err)
	_, err = src.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))

	half := Downscale(img, 0.5)
	assert.Equal(t, 50, half.Bounds().Dx())
	assert.Equal(t, 25, half.Bounds().Dy())

	assert.Same(t, img, Downscale(img, 1).(*image.RGBA))
	assert.Same(t, img, Downscale(img, 0).(*image.RGBA))
	assert.Nil(t, Downscale(nil, 0.5))

	tiny := Downscale(image.NewRGBA(image.Rect(0, 0, 1, 1)), 0.1)
	assert.Equal(t, 1, tiny.Bounds().Dx())
}

func TestUpscale(t *testing.T) {
	x, y := Upscale(50, 20, 0.5)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 40.0, y)

	x, y = Upscale(50, 20, 1)
	assert.Equal(t, 50.0, x)
	assert.Equal(t, 20.0, y)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "0001.png"), 4, 4)

	src, err := Open(dir, 24)
	require.NoError(t, err)
	assert.Equal(t, 1, src.FrameCount())

	_, err = Open(filepath.Join(dir, "missing.mp4"), 24)
	assert.Error(t, err)
}
