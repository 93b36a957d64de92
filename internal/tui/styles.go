package tui

import "github.com/charmbracelet/lipgloss"

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	PositiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	NegativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4672"))
	WarningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623"))
	InfoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	SelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	FavoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)
