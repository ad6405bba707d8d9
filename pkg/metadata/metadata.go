// Package metadata writes JSON sidecar files describing downloaded images.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtworkMetadata describes one downloaded image of an artwork
type ArtworkMetadata struct {
	// Core identifiers
	ArtworkID string `json:"artwork_id"`
	Part      int    `json:"part"`
	PartCount int    `json:"part_count"`
	PageURL   string `json:"page_url"`
	ImageURL  string `json:"image_url"`

	// Content
	Title        string `json:"title"`
	CreationDate string `json:"creation_date,omitempty"`
	Lang         string `json:"lang,omitempty"`

	// Engagement, as displayed on the page
	Likes     string `json:"likes,omitempty"`
	Bookmarks string `json:"bookmarks,omitempty"`
	Views     string `json:"views,omitempty"`

	Author Author `json:"author"`

	FileSize     int64     `json:"file_size,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Author identifies the artwork's creator
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SidecarPath returns where the metadata for imagePath is stored
func SidecarPath(imagePath string) string {
	return imagePath + ".json"
}

// Save writes the metadata next to imagePath
func (m *ArtworkMetadata) Save(imagePath string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(SidecarPath(imagePath), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads the metadata stored next to imagePath
func Load(imagePath string) (*ArtworkMetadata, error) {
	data, err := os.ReadFile(SidecarPath(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta ArtworkMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// Exists checks if a sidecar exists for imagePath
func Exists(imagePath string) bool {
	_, err := os.Stat(SidecarPath(imagePath))
	return err == nil
}

// Writer stamps and saves sidecars. It satisfies the downloader's
// MetadataWriter.
type Writer struct {
	now func() time.Time
}

// NewWriter creates a sidecar writer
func NewWriter() *Writer {
	return &Writer{now: time.Now}
}

// Write saves meta next to path. meta must be an *ArtworkMetadata.
func (w *Writer) Write(path string, meta interface{}) error {
	m, ok := meta.(*ArtworkMetadata)
	if !ok {
		return fmt.Errorf("unsupported metadata type %T", meta)
	}
	stamped := *m
	stamped.DownloadedAt = w.now()
	if info, err := os.Stat(path); err == nil {
		stamped.FileSize = info.Size()
	}
	return stamped.Save(path)
}

// CleanOrphaned removes sidecars whose image no longer exists
func CleanOrphaned(directory string) (int, error) {
	removed := 0
	err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		imagePath := path[:len(path)-len(".json")]
		if _, err := os.Stat(imagePath); os.IsNotExist(err) {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove orphaned metadata %s: %w", path, err)
			}
			removed++
		}
		return nil
	})
	return removed, err
}
