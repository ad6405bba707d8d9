package tui

import (
	"time"

	"artgrab/pkg/ui"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// NavEntry is one navigation event shown in the timeline
type NavEntry struct {
	Time     time.Time
	Kind     string
	Location string
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of a page session. Messages are applied on
// the program goroutine only.
type Model struct {
	spinner      spinner.Model
	progressBars map[string]progress.Model

	artworks map[string]*ui.ArtworkView
	order    []string

	nav         []NavEntry
	maxNav      int
	logMessages []LogMessage
	maxLogs     int

	summary   *ui.Summary
	startTime time.Time

	width    int
	height   int
	showHelp bool
}

// NewModel creates an empty session model
func NewModel() *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	return &Model{
		spinner:      s,
		progressBars: make(map[string]progress.Model),
		artworks:     make(map[string]*ui.ArtworkView),
		maxNav:       12,
		maxLogs:      50,
		startTime:    time.Now(),
	}
}

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetArtwork records the latest state of an artwork
func (m *Model) SetArtwork(a ui.ArtworkView) {
	if _, ok := m.artworks[a.ID]; !ok {
		m.order = append(m.order, a.ID)
		p := progress.New(progress.WithDefaultGradient())
		p.Width = 40
		m.progressBars[a.ID] = p
	}
	copied := a
	m.artworks[a.ID] = &copied
}

// AddNavigation appends to the navigation timeline
func (m *Model) AddNavigation(kind, location string) {
	m.nav = append(m.nav, NavEntry{Time: time.Now(), Kind: kind, Location: location})
	if len(m.nav) > m.maxNav {
		m.nav = m.nav[len(m.nav)-m.maxNav:]
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = red
	case "WARN":
		color = orange
	case "SUCCESS":
		color = green
	case "INFO":
		color = accent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logMessages) > m.maxLogs {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogs:]
	}
}

// Artworks returns artworks in the order they were first seen
func (m *Model) Artworks() []*ui.ArtworkView {
	out := make([]*ui.ArtworkView, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.artworks[id])
	}
	return out
}

// Finished reports whether the session summary has arrived
func (m *Model) Finished() bool { return m.summary != nil }

// Totals sums part counts over all artworks
func (m *Model) Totals() (parts, done, failed int, bytes int64) {
	for _, a := range m.artworks {
		for _, p := range a.Parts {
			parts++
			switch p.State {
			case "done":
				done++
				bytes += p.Loaded
			case "error", "timeout":
				failed++
			}
		}
	}
	return
}

func artworkProgress(a *ui.ArtworkView) float64 {
	var loaded, total int64
	settled := 0
	for _, p := range a.Parts {
		loaded += p.Loaded
		total += p.Total
		if p.State != "pending" {
			settled++
		}
	}
	if len(a.Parts) == 0 {
		return 0
	}
	if total == 0 {
		return float64(settled) / float64(len(a.Parts))
	}
	if f := float64(loaded) / float64(total); f < 1 {
		return f
	}
	return 1
}
