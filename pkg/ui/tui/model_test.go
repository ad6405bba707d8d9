package tui

import (
	"strings"
	"testing"
	"time"

	"artgrab/pkg/ui"

	tea "github.com/charmbracelet/bubbletea"
)

func parts(states ...string) []ui.PartView {
	out := make([]ui.PartView, len(states))
	for i, s := range states {
		out[i] = ui.PartView{Index: i, State: s, Loaded: 100, Total: 100}
	}
	return out
}

func TestModelTracksArtworks(t *testing.T) {
	model := NewModel()

	model.Update(ArtworkMsg{Artwork: ui.ArtworkView{ID: "1", Title: "One", Status: "Downloading 0/2", Parts: parts("pending", "pending")}})
	model.Update(ArtworkMsg{Artwork: ui.ArtworkView{ID: "2", Title: "Two", Status: "Downloading 0/1", Parts: parts("pending")}})
	model.Update(ArtworkMsg{Artwork: ui.ArtworkView{ID: "1", Title: "One", Status: "Downloaded 1/2 (error)", Parts: parts("done", "error")}})

	artworks := model.Artworks()
	if len(artworks) != 2 {
		t.Fatalf("Expected 2 artworks, got %d", len(artworks))
	}
	if artworks[0].ID != "1" || artworks[0].Status != "Downloaded 1/2 (error)" {
		t.Errorf("Expected updated artwork 1 first, got %+v", artworks[0])
	}

	total, done, failed, bytes := model.Totals()
	if total != 3 || done != 1 || failed != 1 || bytes != 100 {
		t.Errorf("Totals = %d %d %d %d", total, done, failed, bytes)
	}
}

func TestModelNavigationIsBounded(t *testing.T) {
	model := NewModel()
	for i := 0; i < 30; i++ {
		model.Update(NavigationMsg{Kind: "item-navigate", Location: "https://example.test/artworks/1"})
	}
	if len(model.nav) != model.maxNav {
		t.Errorf("Expected %d entries, got %d", model.maxNav, len(model.nav))
	}
}

func TestModelFinished(t *testing.T) {
	model := NewModel()
	if model.Finished() {
		t.Fatal("New model should not be finished")
	}

	model.Update(FinishedMsg{Summary: ui.Summary{Parts: 2, Completed: 1, Failed: 1, Elapsed: time.Second}})
	if !model.Finished() {
		t.Error("Model should be finished")
	}
	if got := model.logMessages[len(model.logMessages)-1].Level; got != "WARN" {
		t.Errorf("Expected WARN for a failed session, got %s", got)
	}

	if _, cmd := model.Update(TickMsg(time.Now())); cmd != nil {
		t.Error("Ticks should stop after the session finishes")
	}
}

func TestModelKeys(t *testing.T) {
	model := NewModel()
	model.Update(LogMsg{Level: "INFO", Message: "hello"})

	model.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if len(model.logMessages) != 0 {
		t.Error("ctrl+l should clear the log")
	}

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	if !model.showHelp {
		t.Error("? should toggle help")
	}

	if _, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should quit")
	}
}

func TestView(t *testing.T) {
	model := NewModel()
	if got := model.View(); got != "Initializing..." {
		t.Errorf("Expected placeholder before sizing, got %q", got)
	}

	model.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	model.Update(NavigationMsg{Kind: "whole-navigate", Location: "https://example.test/artworks/7"})
	model.Update(ArtworkMsg{Artwork: ui.ArtworkView{ID: "7", Title: "Harbor", Status: "Downloaded 1/1", Parts: parts("done")}})

	view := model.View()
	for _, want := range []string{"NAVIGATION", "whole-navigate", "Harbor", "Downloaded 1/1"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestArtworkProgress(t *testing.T) {
	a := &ui.ArtworkView{Parts: []ui.PartView{{State: "done"}, {State: "pending"}}}
	if got := artworkProgress(a); got != 0.5 {
		t.Errorf("Expected 0.5 without sizes, got %f", got)
	}

	a = &ui.ArtworkView{Parts: []ui.PartView{{State: "pending", Loaded: 25, Total: 100}}}
	if got := artworkProgress(a); got != 0.25 {
		t.Errorf("Expected 0.25, got %f", got)
	}
}
