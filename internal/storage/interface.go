package storage

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidName is returned for document names that leave the storage
// root.
var ErrInvalidName = errors.New("invalid document name")

// Storage defines where playlist documents are read from and where
// converted playlists are written to.
type Storage interface {
	// InputPath maps the name of an uploaded playlist document to the
	// path GetReader expects.
	InputPath(name string) (string, error)

	// OutputPath returns a path for a converted playlist that does not
	// exist yet. renamed is true when a numeric suffix had to be added.
	OutputPath(name, ext string) (path string, renamed bool, err error)

	Cleanup() error

	GetReader(path string) (io.ReadCloser, error)

	GetWriter(path string) (io.WriteCloser, error)

	FileExists(path string) bool

	ListFiles(dir string, pattern string) ([]string, error)
}

// Abort discards a writer returned by GetWriter without publishing what
// was written so far.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(interface{ Abort() error }); ok {
		return a.Abort()
	}
	return w.Close()
}

// maxSuffix bounds the search for a free output name.
const maxSuffix = 1000

// uniqueName returns base+ext, or base-N+ext for the first N that exists
// reports as free.
func uniqueName(base, ext string, exists func(string) bool) (string, bool, error) {
	ext = "." + strings.TrimPrefix(ext, ".")
	name := base + ext
	if !exists(name) {
		return name, false, nil
	}
	for i := 1; i < maxSuffix; i++ {
		name = fmt.Sprintf("%s-%d%s", base, i, ext)
		if !exists(name) {
			return name, true, nil
		}
	}
	return "", false, fmt.Errorf("no free output name for %s%s", base, ext)
}

// cleanName rejects absolute names and names that climb out of the root.
func cleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}
