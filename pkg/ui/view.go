package ui

import (
	"fmt"
	"time"
)

// PartView is one request of an artwork batch as shown to the user
type PartView struct {
	Index  int
	Name   string
	State  string
	Loaded int64
	Total  int64
	Err    string
}

// ArtworkView is the latest state of one artwork
type ArtworkView struct {
	ID     string
	Title  string
	Status string
	Parts  []PartView
}

// Summary totals a finished session
type Summary struct {
	Artworks  int
	Parts     int
	Completed int
	Failed    int
	TimedOut  int
	// Saved counts files written; Skipped counts parts already on disk
	Saved   int
	Skipped int
	Bytes   int64
	Elapsed time.Duration
}

// OK reports whether every part was saved
func (s Summary) OK() bool {
	return s.Failed == 0 && s.TimedOut == 0
}

func (s Summary) String() string {
	line := fmt.Sprintf("%d/%d parts from %d artworks, %s in %s",
		s.Completed, s.Parts, s.Artworks, FormatBytes(s.Bytes), FormatDuration(s.Elapsed))
	if s.Skipped > 0 {
		line += fmt.Sprintf(", %d already saved", s.Skipped)
	}
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed", s.Failed)
	}
	if s.TimedOut > 0 {
		line += fmt.Sprintf(", %d timed out", s.TimedOut)
	}
	return line
}

// SessionView receives session progress. Calls may come from any goroutine.
type SessionView interface {
	Navigated(kind, location string)
	ArtworkChanged(a ArtworkView)
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Finished(s Summary)
}

// FormatBytes formats a byte count, e.g. "1.5 KB"
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats d as "12s", "3m4s" or "1h2m"
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
