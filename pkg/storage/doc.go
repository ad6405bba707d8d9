// Package storage writes downloaded artwork parts to disk.
//
// Files are written to a temporary file in the target directory and renamed
// into place, so a partially transferred image never appears under its final
// name. Names produced by filename templates are sanitized first. Unless
// overwrite is enabled, a name that is already taken gets a " (n)" suffix.
package storage
