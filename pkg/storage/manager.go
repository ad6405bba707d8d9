package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager writes downloaded files under one output directory
type Manager struct {
	outputDir string
	overwrite bool
	reserved  map[string]bool // targets of saves in progress
	written   int
	mu        sync.Mutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
		reserved:  make(map[string]bool),
	}, nil
}

var unsafeChars = strings.NewReplacer(
	`\`, "_", ":", "_", "*", "_", "?", "_", `"`, "'", "<", "_", ">", "_", "|", "_", "\x00", "",
)

// SanitizeFilename makes a template-rendered name safe for the filesystem.
// Forward slashes are kept as subdirectory separators; empty, "." and ".."
// segments are dropped.
func SanitizeFilename(name string) string {
	segments := strings.Split(name, "/")
	clean := segments[:0]
	for _, seg := range segments {
		seg = strings.TrimSpace(unsafeChars.Replace(seg))
		seg = strings.TrimRight(seg, ". ")
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		clean = append(clean, seg)
	}
	if len(clean) == 0 {
		return "download"
	}
	return strings.Join(clean, "/")
}

// Path returns the absolute-or-relative target for a sanitized name
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, filepath.FromSlash(SanitizeFilename(name)))
}

// Existing returns the path of a file already saved for name. It always
// reports false when the manager overwrites existing files.
func (m *Manager) Existing(name string) (string, bool) {
	if m.overwrite {
		return "", false
	}
	path := m.Path(name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// uniquePath appends " (n)" before the extension until the path is free
func (m *Manager) uniquePath(path string) string {
	if m.overwrite {
		return path
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !m.reserved[path] {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) && !m.reserved[candidate] {
			return candidate
		}
	}
}

// Save copies r to name through a temporary file and an atomic rename.
// It returns the final path and the number of bytes written.
func (m *Manager) Save(r io.Reader, name string) (string, int64, error) {
	m.mu.Lock()
	target := m.uniquePath(m.Path(name))
	m.reserved[target] = true
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.reserved, target)
		m.mu.Unlock()
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		release()
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.CreateTemp(filepath.Dir(target), ".artgrab-*.tmp")
	if err != nil {
		release()
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		release()
		return "", n, fmt.Errorf("failed to save data: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		release()
		return "", n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	delete(m.reserved, target)
	m.written++
	m.mu.Unlock()
	return target, n, nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// SavedCount returns how many files this manager has finished writing
func (m *Manager) SavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}
