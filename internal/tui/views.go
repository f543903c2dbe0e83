package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/eivindbakke/merkelapp/internal/classify"
)

// View renders the current state of the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.renderLoading()
	}

	switch m.state {
	case StateHelp:
		return m.renderHelp()
	case StateDetail:
		return m.renderDetailView()
	default:
		return m.renderBrowse()
	}
}

// renderLoading shows a centered loading message.
func (m Model) renderLoading() string {
	msg := m.theme.Title.Render("📦 merkelapp") + "\n\n" +
		m.theme.Normal.Render("Loading photo library...")
	if m.width == 0 {
		return msg
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}

// renderBrowse shows the photo table, with the detail pane beside it on
// wide terminals.
func (m Model) renderBrowse() string {
	header := m.renderHeader()
	footer := m.renderStatusBar()

	if m.width < compactWidth {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.table.View(), footer)
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.table.View(),
		m.theme.BorderedBox.Render(m.detail.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderDetailView shows the selected photo full screen.
func (m Model) renderDetailView() string {
	header := m.renderHeader()
	footer := m.renderStatusBar()
	body := m.theme.BorderedBox.Render(m.detail.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderHelp shows the full key binding reference.
func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render("📦 merkelapp · key bindings"),
		"",
		h.View(m.keymap),
		"",
		m.theme.Subtitle.Render("Press esc to go back."),
	)
}

// renderHeader shows the title and library statistics.
func (m Model) renderHeader() string {
	title := m.theme.Title.Render("📦 merkelapp")

	analyzed := 0
	var total, sum float64
	for _, entry := range m.entries {
		if entry.Photo.Analyzed {
			analyzed++
		}
		if entry.Result != nil {
			total++
			sum += entry.Result.Score
		}
	}
	stats := fmt.Sprintf("%d photos · %d analyzed", len(m.entries), analyzed)
	if total > 0 {
		stats += fmt.Sprintf(" · avg score %.2f", sum/total)
	}

	return title + "  " + m.theme.Subtitle.Render(stats)
}

// renderStatusBar shows the active filter, key hints, and any error.
func (m Model) renderStatusBar() string {
	filter := m.theme.StatusBar.Render(fmt.Sprintf(" filter: %s (%d) ", m.filter, len(m.visible)))
	bar := filter + "  " + m.help.View(m.keymap)
	if m.lastError != nil {
		bar += "\n" + m.theme.StatusError.Render("✗ "+m.lastError.Error())
	}
	return bar
}

// detailContent builds the detail pane text for one photo.
func (m Model) detailContent(entry *photoEntry) string {
	if entry == nil {
		return m.theme.StatusPending.Render("No photos match the current filter.") + "\n\n" +
			m.theme.Subtitle.Render("Import photos with: merkelapp import <directory>")
	}

	var sb strings.Builder
	photo := entry.Photo

	sb.WriteString(m.theme.Bold.Render(filepath.Base(photo.AssetID)) + "\n")
	sb.WriteString(m.theme.Subtitle.Render(photo.AssetID) + "\n\n")
	fmt.Fprintf(&sb, "Taken:    %s\n", photo.CreatedAt.Format("Jan 2, 2006 15:04"))
	if photo.Analyzed {
		fmt.Fprintf(&sb, "Analyzed: %s\n", photo.AnalyzedAt.Format("Jan 2, 2006 15:04"))
	} else {
		fmt.Fprintf(&sb, "Analyzed: %s\n", m.theme.StatusPending.Render("not yet"))
	}

	sb.WriteString("\n" + m.theme.Title.Render("Labels") + "\n")
	if len(entry.Labels) == 0 {
		sb.WriteString(m.theme.StatusPending.Render("(none)") + "\n")
	}
	for _, label := range entry.Labels {
		fmt.Fprintf(&sb, "%s %s %s\n",
			CategoryIcon(label.Category),
			label.Name,
			m.theme.Subtitle.Render(fmt.Sprintf("(%s)", label.Source)))
	}

	if entry.Result != nil {
		score := entry.Result.Score
		sb.WriteString("\n" + m.theme.Title.Render("Delivery Score") + "\n")
		fmt.Fprintf(&sb, "%s %s\n",
			m.theme.ScoreStyle(score).Render(fmt.Sprintf("%s (%d%%)", formatScore(score), classify.Percent(score))),
			m.renderBar(score, 20))
		fmt.Fprintf(&sb, "Confidence: %s\n", classify.ConfidenceLevel(score))
		fmt.Fprintf(&sb, "Assessment: %s\n", classify.RiskLevel(score))
		if entry.Result.Reasoning != "" {
			fmt.Fprintf(&sb, "Reasoning:  %s\n", entry.Result.Reasoning)
		}
	} else {
		sb.WriteString("\n" + m.theme.StatusPending.Render("Not scored yet") + "\n")
	}

	if detection := decodeDetection(photo.Analysis); detection != nil {
		fmt.Fprintf(&sb, "\n%s\n", m.theme.Title.Render(fmt.Sprintf("Detected objects (%s)", detection.Model)))
		if detection.Description != "" {
			sb.WriteString(m.theme.Subtitle.Render(detection.Description) + "\n")
		}
		if len(detection.Objects) == 0 {
			sb.WriteString(m.theme.StatusPending.Render("(none)") + "\n")
		}
		for _, obj := range detection.Objects {
			fmt.Fprintf(&sb, "%-20s %s %3.0f%%\n", obj.Name, m.renderBar(obj.Confidence, 10), obj.Confidence*100)
		}
	}

	return sb.String()
}

// renderBar draws a horizontal gauge for a value in [0, 1].
func (m Model) renderBar(value float64, width int) string {
	filled := int(value*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return m.theme.ProgressFull.Render(strings.Repeat("█", filled)) +
		m.theme.ProgressEmpty.Render(strings.Repeat("░", width-filled))
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}
