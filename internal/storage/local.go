package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStorage implements the Storage interface for local filesystem
type LocalFileStorage struct {
	dataDir   string
	outputDir string
	tempDir   string
}

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(dataDir, outputDir, tempDir string) (*LocalFileStorage, error) {
	// Ensure directories exist
	for _, dir := range []string{dataDir, outputDir, tempDir} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &LocalFileStorage{
		dataDir:   dataDir,
		outputDir: outputDir,
		tempDir:   tempDir,
	}, nil
}

// InputPath resolves name inside the data directory
func (s *LocalFileStorage) InputPath(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dataDir, filepath.FromSlash(clean)), nil
}

// OutputPath returns a free path in the output directory
func (s *LocalFileStorage) OutputPath(name, ext string) (string, bool, error) {
	path, renamed, err := uniqueName(filepath.Join(s.outputDir, name), ext, s.FileExists)
	if err != nil {
		return "", false, err
	}
	return path, renamed, nil
}

// Cleanup removes partial files left behind by interrupted writes
func (s *LocalFileStorage) Cleanup() error {
	files, err := os.ReadDir(s.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read temp directory: %w", err)
	}
	for _, f := range files {
		if !strings.HasPrefix(f.Name(), partialPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.tempDir, f.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove partial file: %w", err)
		}
	}
	return nil
}

// GetReader returns a reader for the specified file
func (s *LocalFileStorage) GetReader(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// GetWriter returns a writer for the specified file. The content is staged
// in the temp directory and moved into place on Close.
func (s *LocalFileStorage) GetWriter(path string) (io.WriteCloser, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(s.tempDir, partialPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	return &stagedFile{File: tmp, target: path}, nil
}

// FileExists checks if a file exists
func (s *LocalFileStorage) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListFiles lists files in a directory matching a pattern
func (s *LocalFileStorage) ListFiles(dir string, pattern string) ([]string, error) {
	// If dir is empty, use the data directory
	if dir == "" {
		dir = s.dataDir
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		// Match pattern (simple prefix for now)
		if pattern != "" && !strings.HasPrefix(file.Name(), pattern) {
			continue
		}

		results = append(results, filepath.Join(dir, file.Name()))
	}

	return results, nil
}

const partialPrefix = ".partial-"

// stagedFile renames itself to target when closed.
type stagedFile struct {
	*os.File
	target string
}

// Abort removes the staged content; target is left as it was.
func (f *stagedFile) Abort() error {
	f.File.Close()
	if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *stagedFile) Close() error {
	if err := f.File.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	if err := os.Rename(f.Name(), f.target); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("failed to move %s into place: %w", f.target, err)
	}
	return nil
}
