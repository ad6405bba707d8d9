package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressDisplay is the plain-terminal SessionView. It keeps one progress
// line for the current artwork and prints a line per finished artwork.
type ProgressDisplay struct {
	mu       sync.Mutex
	out      io.Writer
	debug    bool
	current  string
	finished map[string]bool
}

// NewProgressDisplay writes to out. In debug mode every part is listed.
func NewProgressDisplay(out io.Writer, debug bool) *ProgressDisplay {
	return &ProgressDisplay{out: out, debug: debug, finished: make(map[string]bool)}
}

// Navigated implements SessionView
func (p *ProgressDisplay) Navigated(kind, location string) {
	if !p.debug {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s %s\n", Magenta("→"), kind, Dim(location))
}

// ArtworkChanged implements SessionView
func (p *ProgressDisplay) ArtworkChanged(a ArtworkView) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != a.ID {
		p.current = a.ID
		delete(p.finished, a.ID)
	}

	var loaded, total int64
	pending := 0
	for _, part := range a.Parts {
		loaded += part.Loaded
		total += part.Total
		if part.State == "pending" {
			pending++
		}
	}

	if len(a.Parts) > 0 && pending == 0 {
		if p.finished[a.ID] {
			return
		}
		p.finished[a.ID] = true
		mark := Green("✓")
		if strings.Contains(a.Status, "(") {
			mark = Red("✗")
		}
		fmt.Fprintf(p.out, "\r%s\r%s %s %s • %s\n", strings.Repeat(" ", 100), mark, Cyan(a.ID), a.Title, a.Status)
		if p.debug {
			for _, part := range a.Parts {
				p.printPart(part)
			}
		}
		return
	}

	line := fmt.Sprintf("%s %s [%s] %s", Cyan(a.ID), a.Status, bar(loaded, total, 20), FormatBytes(loaded))
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
}

func (p *ProgressDisplay) printPart(part PartView) {
	switch part.State {
	case "done":
		fmt.Fprintf(p.out, "  %s %s • %s\n", Green("✓"), part.Name, FormatBytes(part.Loaded))
	default:
		fmt.Fprintf(p.out, "  %s %s • %s %s\n", Red("✗"), part.Name, part.State, Dim(part.Err))
	}
}

// Info implements SessionView
func (p *ProgressDisplay) Info(format string, args ...interface{}) {
	p.println(Cyan("•"), format, args...)
}

// Warn implements SessionView
func (p *ProgressDisplay) Warn(format string, args ...interface{}) {
	p.println(Yellow("⚠"), format, args...)
}

// Error implements SessionView
func (p *ProgressDisplay) Error(format string, args ...interface{}) {
	p.println(Red("✗"), format, args...)
}

func (p *ProgressDisplay) println(mark, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", mark, fmt.Sprintf(format, args...))
}

// Finished implements SessionView
func (p *ProgressDisplay) Finished(s Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := Green("✓")
	if !s.OK() {
		mark = Yellow("⚠")
	}
	fmt.Fprintf(p.out, "\n%s Downloaded %s\n", mark, s.String())
}

func bar(loaded, total int64, width int) string {
	filled := 0
	if total > 0 {
		filled = int(float64(loaded) / float64(total) * float64(width))
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}
