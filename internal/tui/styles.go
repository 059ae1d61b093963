package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.BorderForeground(lipgloss.Color("12"))

	listTitleStyle = lipgloss.NewStyle().Bold(true)
	cardStyle      = lipgloss.NewStyle()
	selectedStyle  = lipgloss.NewStyle().Reverse(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	toastStyles = map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		"success": lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)
