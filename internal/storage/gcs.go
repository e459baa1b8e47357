package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage implements the Storage interface for Google Cloud Storage
type GCSStorage struct {
	client       *storage.Client
	bucket       string
	tempDir      string
	objectPrefix string
	ctx          context.Context
}

// NewGCSStorage creates a new GCSStorage instance
func NewGCSStorage(ctx context.Context, bucketName, objectPrefix, tempDir, credentialsFile string) (*GCSStorage, error) {
	var client *storage.Client
	var err error

	// Create a client
	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		// Use application default credentials
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	// Create local temp directory if it doesn't exist
	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &GCSStorage{
		client:       client,
		bucket:       bucketName,
		tempDir:      tempDir,
		objectPrefix: objectPrefix,
		ctx:          ctx,
	}, nil
}

// InputPath returns the object name of an uploaded document
func (s *GCSStorage) InputPath(name string) (string, error) {
	return cleanName(name)
}

// OutputPath returns a free object name for a converted playlist
func (s *GCSStorage) OutputPath(name, ext string) (string, bool, error) {
	return uniqueName(name, ext, s.FileExists)
}

// Cleanup removes temporary files
func (s *GCSStorage) Cleanup() error {
	files, err := os.ReadDir(s.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read temp directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.tempDir, f.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to cleanup %s: %w", f.Name(), err)
		}
	}
	return nil
}

// GetReader returns a reader for a file
func (s *GCSStorage) GetReader(path string) (io.ReadCloser, error) {
	// If the path is local (in the temp directory), open the local file
	if strings.HasPrefix(path, s.tempDir) {
		return os.Open(path)
	}

	// Otherwise, assume it's a GCS object path
	objectName := s.objectName(path)
	return s.client.Bucket(s.bucket).Object(objectName).NewReader(s.ctx)
}

// GetWriter returns a writer for a file
func (s *GCSStorage) GetWriter(path string) (io.WriteCloser, error) {
	// If the path is local (in the temp directory), create/open the local file
	if strings.HasPrefix(path, s.tempDir) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		return os.Create(path)
	}

	// Otherwise, assume it's a GCS object path
	objectName := s.objectName(path)
	ctx, cancel := context.WithCancel(s.ctx)
	return &objectWriter{Writer: s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx), cancel: cancel}, nil
}

// objectWriter publishes the object on Close. Abort cancels the upload so
// no object is created.
type objectWriter struct {
	*storage.Writer
	cancel context.CancelFunc
}

func (w *objectWriter) Close() error {
	defer w.cancel()
	return w.Writer.Close()
}

func (w *objectWriter) Abort() error {
	w.cancel()
	w.Writer.Close()
	return nil
}

// FileExists checks if a file exists
func (s *GCSStorage) FileExists(path string) bool {
	// If the path is local, check the local filesystem
	if strings.HasPrefix(path, s.tempDir) {
		_, err := os.Stat(path)
		return err == nil
	}

	// Otherwise, check in GCS
	objectName := s.objectName(path)
	_, err := s.client.Bucket(s.bucket).Object(objectName).Attrs(s.ctx)
	return err == nil
}

// ListFiles lists documents below dir matching a prefix pattern. Names are
// returned without the configured object prefix, ready for GetReader. The
// temp directory is listed from the local filesystem.
func (s *GCSStorage) ListFiles(dir string, pattern string) ([]string, error) {
	if dir != "" && dir == s.tempDir {
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}

		var results []string
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if pattern != "" && !strings.HasPrefix(file.Name(), pattern) {
				continue
			}
			results = append(results, filepath.Join(dir, file.Name()))
		}
		return results, nil
	}

	prefix := s.objectName(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	it := s.client.Bucket(s.bucket).Objects(s.ctx, &storage.Query{
		Prefix: prefix,
	})

	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}

		// Skip directories (objects ending with /)
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		// Match pattern (simple prefix for now)
		if pattern != "" && !strings.HasPrefix(path.Base(attrs.Name), pattern) {
			continue
		}

		results = append(results, s.relativeName(attrs.Name))
	}

	return results, nil
}

// objectName applies the configured prefix to a bucket path
func (s *GCSStorage) objectName(p string) string {
	name := strings.TrimPrefix(p, "/")
	if s.objectPrefix != "" {
		name = s.objectPrefix + "/" + name
	}
	return name
}

// relativeName strips the configured prefix from an object name
func (s *GCSStorage) relativeName(name string) string {
	if s.objectPrefix == "" {
		return name
	}
	return strings.TrimPrefix(name, s.objectPrefix+"/")
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
