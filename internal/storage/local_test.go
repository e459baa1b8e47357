package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalFileStorage, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewLocalFileStorage(filepath.Join(root, "data"), filepath.Join(root, "output"), filepath.Join(root, "temp"))
	require.NoError(t, err)
	return s, root
}

func TestOutputPathAddsSuffix(t *testing.T) {
	s, root := newLocal(t)

	path, renamed, err := s.OutputPath("set", "xml")
	require.NoError(t, err)
	assert.False(t, renamed)
	assert.Equal(t, filepath.Join(root, "output", "set.xml"), path)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	path, renamed, err = s.OutputPath("set", ".xml")
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.Equal(t, filepath.Join(root, "output", "set-1.xml"), path)
}

func TestStagedWriter(t *testing.T) {
	s, root := newLocal(t)
	target := filepath.Join(root, "output", "nested", "set.nml")

	w, err := s.GetWriter(target)
	require.NoError(t, err)
	assert.False(t, s.FileExists(target))

	_, err = io.WriteString(w, "<NML/>")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := s.GetReader(target)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "<NML/>", string(data))

	leftovers, err := os.ReadDir(filepath.Join(root, "temp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCleanupRemovesPartialFiles(t *testing.T) {
	s, root := newLocal(t)
	tempDir := filepath.Join(root, "temp")
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, partialPrefix+"abc"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "keep.txt"), nil, 0o644))

	require.NoError(t, s.Cleanup())

	files, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "keep.txt", files[0].Name())
}

func TestListFiles(t *testing.T) {
	s, root := newLocal(t)
	dataDir := filepath.Join(root, "data")
	for _, name := range []string{"set-a.crate", "set-b.crate", "other.xml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "set-dir"), 0o755))

	files, err := s.ListFiles("", "set-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dataDir, "set-a.crate"),
		filepath.Join(dataDir, "set-b.crate"),
	}, files)
}

func TestUniqueNameGivesUp(t *testing.T) {
	_, _, err := uniqueName("x", "xml", func(string) bool { return true })
	assert.Error(t, err)
}

func TestInputPath(t *testing.T) {
	s, root := newLocal(t)

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "set.crate", want: filepath.Join(root, "data", "set.crate")},
		{name: "Subcrates/House.crate", want: filepath.Join(root, "data", "Subcrates", "House.crate")},
		{name: `Subcrates\Deep.crate`, want: filepath.Join(root, "data", "Subcrates", "Deep.crate")},
		{name: "a/../b.xml", want: filepath.Join(root, "data", "b.xml")},
		{name: "../etc/passwd", wantErr: true},
		{name: "/etc/passwd", wantErr: true},
		{name: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.InputPath(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAbortDiscardsStagedContent(t *testing.T) {
	s, root := newLocal(t)
	target := filepath.Join(root, "output", "set.xml")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	w, err := s.GetWriter(target)
	require.NoError(t, err)
	_, err = io.WriteString(w, "partial")
	require.NoError(t, err)
	require.NoError(t, Abort(w))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	leftovers, err := os.ReadDir(filepath.Join(root, "temp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
