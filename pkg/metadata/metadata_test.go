package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterStampsAndSaves(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "42_p0.png")
	require.NoError(t, os.WriteFile(img, []byte("12345"), 0644))

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w := &Writer{now: func() time.Time { return fixed }}

	in := &ArtworkMetadata{ArtworkID: "42", Part: 0, PartCount: 2, Title: "Sunset", Author: Author{ID: "7", Name: "someone"}}
	require.NoError(t, w.Write(img, in))
	assert.True(t, Exists(img))

	got, err := Load(img)
	require.NoError(t, err)
	assert.Equal(t, "Sunset", got.Title)
	assert.Equal(t, int64(5), got.FileSize)
	assert.True(t, fixed.Equal(got.DownloadedAt))
	assert.True(t, in.DownloadedAt.IsZero())
}

func TestWriterRejectsOtherTypes(t *testing.T) {
	assert.Error(t, NewWriter().Write(filepath.Join(t.TempDir(), "x"), map[string]string{}))
}

func TestCleanOrphaned(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.png")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0644))
	require.NoError(t, (&ArtworkMetadata{ArtworkID: "1"}).Save(kept))
	require.NoError(t, (&ArtworkMetadata{ArtworkID: "2"}).Save(filepath.Join(dir, "gone.png")))

	removed, err := CleanOrphaned(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, Exists(kept))
	assert.False(t, Exists(filepath.Join(dir, "gone.png")))
}
