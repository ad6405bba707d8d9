package tui

import (
	"time"

	"artgrab/pkg/ui"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// NavigationMsg reports a navigation event
type NavigationMsg struct {
	Kind     string
	Location string
}

// ArtworkMsg carries the latest state of an artwork
type ArtworkMsg struct {
	Artwork ui.ArtworkView
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// FinishedMsg ends the session
type FinishedMsg struct {
	Summary ui.Summary
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.Finished() {
			return m, nil
		}
		return m, tickCmd()

	case NavigationMsg:
		m.AddNavigation(msg.Kind, msg.Location)
		return m, nil

	case ArtworkMsg:
		m.SetArtwork(msg.Artwork)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case FinishedMsg:
		s := msg.Summary
		m.summary = &s
		level := "SUCCESS"
		if !s.OK() {
			level = "WARN"
		}
		m.AddLogMessage(level, "Session finished: "+s.String())
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
