package frames

import (
	"fmt"
	"os"
)

// openVideo is replaced by the gocv build to decode container files.
var openVideo = func(path string) (Source, error) {
	return nil, fmt.Errorf("cannot decode %s: binary built without video support (build with -tags gocv)", path)
}

// Open returns a Source for path. Directories are read as image sequences at
// fps; regular files are decoded as video containers when video support is
// compiled in.
func Open(path string, fps float64) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return NewDirectorySource(path, DirectoryOptions{FrameRate: fps})
	}
	return openVideo(path)
}
