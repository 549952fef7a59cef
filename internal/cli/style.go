package cli

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#0EA5E9")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle   = lipgloss.NewStyle().Foreground(dim)
	okStyle    = lipgloss.NewStyle().Foreground(success)
	warnStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
)
