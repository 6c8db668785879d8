// Package wizard implements the interactive setup flow behind `dht init -i`.
package wizard

import (
	"github.com/charmbracelet/lipgloss"
)

// wizardStyles are the shared screen styles.
type wizardStyles struct {
	title      lipgloss.Style
	subtitle   lipgloss.Style
	success    lipgloss.Style
	error      lipgloss.Style
	info       lipgloss.Style
	subtle     lipgloss.Style
	bold       lipgloss.Style
	border     lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	focused    lipgloss.Style
	unfocused  lipgloss.Style
	help       lipgloss.Style
	selected   lipgloss.Style
	unselected lipgloss.Style
}

func defaultWizardStyles() wizardStyles {
	return wizardStyles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(0, 1).
			MarginBottom(1),
		subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			MarginBottom(1),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")),
		subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		bold: lipgloss.NewStyle().
			Bold(true),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(1, 2),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(22),
		value: lipgloss.NewStyle().
			Bold(true),
		focused: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		unfocused: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true).
			PaddingLeft(2),
		unselected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(2),
	}
}

// State identifies the current wizard screen.
type State int

const (
	// StateWelcome is the intro screen.
	StateWelcome State = iota
	// StateDetecting runs project detection and shows the findings.
	StateDetecting
	// StateLimits collects the guardian budget.
	StateLimits
	// StateReview previews the config before writing it.
	StateReview
	// StateSuccess confirms the written file.
	StateSuccess
	// StateError means a screen failed.
	StateError
	// StateQuit means the user bailed out.
	StateQuit
)

// Result is the outcome of a wizard run.
type Result struct {
	// State is the terminal state.
	State State
	// Path is the config file written, when State is StateSuccess.
	Path string
	// Error is set when State is StateError.
	Error error
}

func banner() string {
	return `
     _ _     _
  __| | |__ | |_
 / _` + "`" + ` | '_ \| __|
| (_| | | | | |_
 \__,_|_| |_|\__|
`
}

// renderStepIndicator draws the breadcrumb across the top of each screen.
func renderStepIndicator(current State, styles wizardStyles) string {
	steps := []struct {
		state State
		name  string
	}{
		{StateWelcome, "Welcome"},
		{StateDetecting, "Detect"},
		{StateLimits, "Budget"},
		{StateReview, "Review"},
		{StateSuccess, "Done"},
	}

	result := ""
	for i, step := range steps {
		if i > 0 {
			result += styles.subtle.Render(" > ")
		}

		switch {
		case step.state == current:
			result += styles.success.Render("●") + " " + styles.bold.Render(step.name)
		case step.state < current:
			result += styles.success.Render("✓") + " " + styles.subtle.Render(step.name)
		default:
			result += styles.subtle.Render("○") + " " + styles.subtle.Render(step.name)
		}
	}

	return result
}

// renderHelp draws the shortcut line at the bottom of a screen.
func renderHelp(shortcuts []string, styles wizardStyles) string {
	result := styles.subtle.Render("Keys: ")
	for i, shortcut := range shortcuts {
		if i > 0 {
			result += styles.subtle.Render(" • ")
		}
		result += styles.info.Render(shortcut)
	}
	return result
}
