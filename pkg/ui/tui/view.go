package tui

import (
	"fmt"
	"strings"
	"time"

	"artgrab/pkg/ui"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	half := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStats(half),
		m.renderArtworks(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderNavigation(half),
		m.renderLogs(half),
	)

	sections := []string{
		headerStyle.Width(m.width).Render(m.spinner.View() + " artgrab"),
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderStats(width int) string {
	parts, done, failed, bytes := m.Totals()
	elapsed := time.Since(m.startTime)
	if m.summary != nil {
		elapsed = m.summary.Elapsed
	}

	lines := []string{
		titleStyle.Render(" SESSION "),
		fmt.Sprintf("%s %s", labelStyle.Render("Elapsed:"), valueStyle.Render(formatClock(elapsed))),
		fmt.Sprintf("%s %s", labelStyle.Render("Artworks:"), valueStyle.Render(fmt.Sprint(len(m.order)))),
		fmt.Sprintf("%s %s", labelStyle.Render("Parts:"), valueStyle.Render(fmt.Sprintf("%d/%d", done, parts))),
		fmt.Sprintf("%s %s", labelStyle.Render("Saved:"), valueStyle.Render(ui.FormatBytes(bytes))),
	}
	if failed > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if m.summary != nil {
		lines = append(lines, successStyle.Render("Finished"))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderArtworks(width int) string {
	lines := []string{titleStyle.Render(" ARTWORKS ")}
	if len(m.order) == 0 {
		lines = append(lines, dimStyle.Render("Waiting for an artwork page"))
	}

	start := len(m.order) - 4
	if start < 0 {
		start = 0
	}
	for _, id := range m.order[start:] {
		lines = append(lines, m.renderArtwork(m.artworks[id], width-4))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderArtwork(a *ui.ArtworkView, width int) string {
	title := a.Title
	if title == "" {
		title = a.ID
	}
	header := fmt.Sprintf("%s %s", labelStyle.Render(truncate(title, width-24)), valueStyle.Render(a.Status))

	bar := m.progressBars[a.ID]
	if width > 10 {
		bar.Width = width - 10
	}

	marks := make([]string, 0, len(a.Parts))
	for _, p := range a.Parts {
		marks = append(marks, partStyle(p.State).Render(fmt.Sprintf("p%d", p.Index)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, bar.ViewAs(artworkProgress(a)), strings.Join(marks, " "))
}

func (m *Model) renderNavigation(width int) string {
	lines := []string{titleStyle.Render(" NAVIGATION ")}
	for _, e := range m.nav {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			timestampStyle.Render(e.Time.Format("15:04:05")),
			navKindStyle.Render(fmt.Sprintf("%-19s", e.Kind)),
			dimStyle.Render(truncate(e.Location, width-34)),
		))
	}
	if len(m.nav) == 0 {
		lines = append(lines, dimStyle.Render("No navigation yet"))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderLogs(width int) string {
	lines := []string{titleStyle.Render(" LOG ")}

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}
	for _, l := range m.logMessages[start:] {
		level := lipgloss.NewStyle().Foreground(l.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", l.Level))
		lines = append(lines, fmt.Sprintf("%s %s %s",
			timestampStyle.Render(l.Time.Format("15:04:05")),
			level,
			truncate(l.Message, width-25),
		))
	}
	if len(m.logMessages) == 0 {
		lines = append(lines, dimStyle.Render("No logs yet..."))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderHelp() string {
	help := `
  q/Q      quit
  ?        toggle this help
  ctrl+l   clear the log

  ` + successStyle.Render("p0") + `  saved   ` + errorStyle.Render("p1") + `  error   ` + warningStyle.Render("p2") + `  timeout   ` + dimStyle.Render("p3") + `  pending
`
	return panelStyle.Width(m.width).Render(help)
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
