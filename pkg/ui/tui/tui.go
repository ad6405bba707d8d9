// Package tui renders a page session in a full-screen terminal view.
package tui

import (
	"fmt"

	"artgrab/pkg/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI is a SessionView backed by a bubbletea program
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ ui.SessionView = (*TUI)(nil)

// New creates a TUI. opts are passed to the program; tests use
// tea.WithInput and tea.WithOutput to run headless.
func New(opts ...tea.ProgramOption) *TUI {
	model := NewModel()
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run blocks until the user quits or Stop is called
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Stop quits the program
func (t *TUI) Stop() {
	t.program.Quit()
}

// Navigated implements ui.SessionView
func (t *TUI) Navigated(kind, location string) {
	t.program.Send(NavigationMsg{Kind: kind, Location: location})
}

// ArtworkChanged implements ui.SessionView
func (t *TUI) ArtworkChanged(a ui.ArtworkView) {
	t.program.Send(ArtworkMsg{Artwork: a})
}

// Info implements ui.SessionView
func (t *TUI) Info(format string, args ...interface{}) {
	t.log("INFO", format, args...)
}

// Warn implements ui.SessionView
func (t *TUI) Warn(format string, args ...interface{}) {
	t.log("WARN", format, args...)
}

// Error implements ui.SessionView
func (t *TUI) Error(format string, args ...interface{}) {
	t.log("ERROR", format, args...)
}

// Finished implements ui.SessionView
func (t *TUI) Finished(s ui.Summary) {
	t.program.Send(FinishedMsg{Summary: s})
}

func (t *TUI) log(level, format string, args ...interface{}) {
	t.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
