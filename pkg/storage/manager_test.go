package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, false)
	require.NoError(t, err)

	_, found := m.Existing("42-0.png")
	assert.False(t, found)

	path, n, err := m.Save(bytes.NewReader([]byte("png bytes")), "42-0.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "42-0.png"), path)
	assert.Equal(t, int64(9), n)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(content))
	existing, found := m.Existing("42-0.png")
	assert.True(t, found)
	assert.Equal(t, path, existing)
	assert.Equal(t, 1, m.SavedCount())

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestSaveKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, false)
	require.NoError(t, err)

	first, _, err := m.Save(bytes.NewReader([]byte("a")), "art.jpg")
	require.NoError(t, err)
	second, _, err := m.Save(bytes.NewReader([]byte("b")), "art.jpg")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "art.jpg"), first)
	assert.Equal(t, filepath.Join(dir, "art (1).jpg"), second)
}

func TestSaveOverwrite(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, true)
	require.NoError(t, err)

	_, _, err = m.Save(bytes.NewReader([]byte("old")), "art.jpg")
	require.NoError(t, err)
	path, _, err := m.Save(bytes.NewReader([]byte("new")), "art.jpg")
	require.NoError(t, err)

	content, _ := os.ReadFile(path)
	assert.Equal(t, "new", string(content))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveCleansUpOnReadError(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, false)
	require.NoError(t, err)

	_, _, err = m.Save(failingReader{}, "broken.png")
	require.Error(t, err)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
	_, found := m.Existing("broken.png")
	assert.False(t, found)
	assert.Zero(t, m.SavedCount())
}

func TestSavedCountIgnoresSavesInProgress(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, false)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, _, err := m.Save(pr, "slow.jpg")
		done <- err
	}()

	_, err = pw.Write([]byte("partial"))
	require.NoError(t, err)
	assert.Zero(t, m.SavedCount())

	require.NoError(t, pw.Close())
	require.NoError(t, <-done)
	assert.Equal(t, 1, m.SavedCount())
}

func TestExistingHonoursOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "art.jpg"), []byte("old"), 0644))

	keep, err := NewManager(dir, false)
	require.NoError(t, err)
	path, found := keep.Existing("art.jpg")
	assert.True(t, found)
	assert.Equal(t, filepath.Join(dir, "art.jpg"), path)

	replace, err := NewManager(dir, true)
	require.NoError(t, err)
	_, found = replace.Existing("art.jpg")
	assert.False(t, found)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"title by author [1].png", "title by author [1].png"},
		{`what? "quoted" a:b.jpg`, `what_ 'quoted' a_b.jpg`},
		{"author/../../etc/passwd", "author/etc/passwd"},
		{"folder/name.png", "folder/name.png"},
		{"trailing dot.", "trailing dot"},
		{"///", "download"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSaveIntoSubdirectory(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, false)
	require.NoError(t, err)

	path, _, err := m.Save(bytes.NewReader([]byte("x")), "someone/42.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "someone", "42.png"), path)
}
