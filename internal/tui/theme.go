package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Selected      lipgloss.Style
	BorderedBox   lipgloss.Style
	StatusBar     lipgloss.Style
	ProgressFull  lipgloss.Style
	ProgressEmpty lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style
	Primary       lipgloss.Color
	Success       lipgloss.Color
	Warning       lipgloss.Color
	Error         lipgloss.Color
	Border        lipgloss.Color
	Muted         lipgloss.Color
}

// DefaultTheme is the postal-orange theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("#FF6B35"),
		Success: lipgloss.Color("#4ECDC4"),
		Warning: lipgloss.Color("#FFE66D"),
		Error:   lipgloss.Color("#FF6B6B"),
		Border:  lipgloss.Color("#404040"),
		Muted:   lipgloss.Color("#737373"),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B35")),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a3a3a3")),
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fafafa")),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fafafa")),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color("#FF6B35")).
			Foreground(lipgloss.Color("#1a1a1a")).
			Bold(true),
		BorderedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#404040")).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#737373")),
		ProgressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B35")),
		ProgressEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404040")),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D")).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),
		StatusPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#737373")).
			Italic(true),
	}
}

// ScoreStyle picks a status style for a delivery score.
func (t Theme) ScoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.7:
		return t.StatusSuccess
	case score >= 0.25:
		return t.StatusWarning
	default:
		return t.StatusPending
	}
}

// categoryIcons maps label categories to emoji icons.
var categoryIcons = map[model.LabelCategory]string{
	model.CategoryPostal:     "📦",
	model.CategoryObject:     "▫️",
	model.CategoryPerson:     "🧍",
	model.CategoryAnimal:     "🐕",
	model.CategoryFood:       "🍕",
	model.CategoryVehicle:    "🚗",
	model.CategoryBuilding:   "🏠",
	model.CategoryNature:     "🌳",
	model.CategoryTechnology: "📱",
}

// CategoryIcon returns an icon for a label category.
func CategoryIcon(category model.LabelCategory) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "🏷️"
}
