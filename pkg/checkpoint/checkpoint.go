package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"artgrab/pkg/logger"
)

const version = 1

// Artwork records the saved parts of one artwork
type Artwork struct {
	PartCount int            `json:"part_count"`
	Parts     map[int]string `json:"parts"` // part index -> saved path
}

// Checkpoint is the saved state of one named grab
type Checkpoint struct {
	Name            string              `json:"name"`
	Artworks        map[string]*Artwork `json:"artworks"`
	TotalDownloaded int                 `json:"total_downloaded"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Version         int                 `json:"version"`
}

// IsArtworkComplete reports whether every part of the artwork was saved
func (c *Checkpoint) IsArtworkComplete(artworkID string) bool {
	a, ok := c.Artworks[artworkID]
	return ok && a.PartCount > 0 && len(a.Parts) >= a.PartCount
}

// IsPartDownloaded reports whether one part was saved
func (c *Checkpoint) IsPartDownloaded(artworkID string, part int) bool {
	a, ok := c.Artworks[artworkID]
	if !ok {
		return false
	}
	_, ok = a.Parts[part]
	return ok
}

// Manager reads and writes one checkpoint file
type Manager struct {
	path   string
	logger logger.Logger
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewManager manages the checkpoint called name under dir. An empty dir
// selects the per-user data directory.
func NewManager(dir, name string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if dir == "" {
		dataDir, err := dataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	file := unsafeName.ReplaceAllString(name, "_")
	if file == "" {
		file = "default"
	}
	return &Manager{
		path:   filepath.Join(dir, file+".checkpoint.json"),
		logger: log.WithField("component", "checkpoint"),
	}, nil
}

// Path returns the checkpoint file
func (m *Manager) Path() string { return m.path }

// Load returns the stored checkpoint, or nil if there is none
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Artworks == nil {
		cp.Artworks = make(map[string]*Artwork)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"name":             cp.Name,
		"artworks":         len(cp.Artworks),
		"total_downloaded": cp.TotalDownloaded,
		"updated_at":       cp.UpdatedAt,
	})
	return &cp, nil
}

// LoadOrCreate returns the stored checkpoint or a new empty one
func (m *Manager) LoadOrCreate(name string) (*Checkpoint, error) {
	cp, err := m.Load()
	if err != nil || cp != nil {
		return cp, err
	}
	now := time.Now()
	return &Checkpoint{
		Name:      name,
		Artworks:  make(map[string]*Artwork),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   version,
	}, nil
}

// Save writes the checkpoint atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := m.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"name":             cp.Name,
		"total_downloaded": cp.TotalDownloaded,
	})
	return nil
}

// RecordPart marks one part as saved and persists the checkpoint
func (m *Manager) RecordPart(cp *Checkpoint, artworkID string, part, partCount int, path string) error {
	a, ok := cp.Artworks[artworkID]
	if !ok {
		a = &Artwork{Parts: make(map[int]string)}
		cp.Artworks[artworkID] = a
	}
	if partCount > a.PartCount {
		a.PartCount = partCount
	}
	if _, seen := a.Parts[part]; !seen {
		cp.TotalDownloaded++
	}
	a.Parts[part] = path
	return m.Save(cp)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

func dataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "artgrab")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "artgrab")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "artgrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "artgrab")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
