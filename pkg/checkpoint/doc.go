// Package checkpoint records which artwork parts a grab has already saved so
// an interrupted run can resume without downloading them again.
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/artgrab/checkpoints/
//   - macOS: ~/Library/Application Support/artgrab/checkpoints/
//   - Windows: %APPDATA%/artgrab/checkpoints/
//
// Files are replaced atomically and carry a version for future migrations.
package checkpoint
