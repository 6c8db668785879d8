// Package ui provides terminal user interface components for dht.
package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles shared by dht's terminal output.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Info     lipgloss.Style
	Subtle   lipgloss.Style
	Bold     lipgloss.Style
}

// DefaultStyles returns the default style set.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1),
		Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		Subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bold:     lipgloss.NewStyle().Bold(true),
	}
}
