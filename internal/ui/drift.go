package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DriftDecision is the outcome of a drift review.
type DriftDecision int

const (
	// DriftPending means no decision has been made yet.
	DriftPending DriftDecision = iota
	// DriftAccepted means the reviewer accepted the current environment
	// as the new baseline.
	DriftAccepted
	// DriftRejected means the reviewer kept the old baseline.
	DriftRejected
)

// DriftSummary is the data shown in the drift review screen.
type DriftSummary struct {
	// BaselinePath is the snapshot file the environment was compared to.
	BaselinePath string
	// BaselineTakenAt is the baseline capture time, already formatted.
	BaselineTakenAt string
	// Changes are the rendered drift lines, one per difference.
	Changes []string
}

// DriftModel is the Bubble Tea model for reviewing environment drift.
type DriftModel struct {
	summary  DriftSummary
	viewport viewport.Model
	decision DriftDecision
	ready    bool
	width    int
	height   int
	showHelp bool
	keymap   driftKeyMap
	styles   driftStyles
}

type driftKeyMap struct {
	Accept   key.Binding
	Reject   key.Binding
	Help     key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

type driftStyles struct {
	title     lipgloss.Style
	success   lipgloss.Style
	error     lipgloss.Style
	warning   lipgloss.Style
	subtle    lipgloss.Style
	bold      lipgloss.Style
	border    lipgloss.Style
	statusBar lipgloss.Style
	stat      lipgloss.Style
	statValue lipgloss.Style
}

func defaultDriftKeyMap() driftKeyMap {
	return driftKeyMap{
		Accept: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y/enter", "accept as new baseline"),
		),
		Reject: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "keep old baseline"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("k/up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("j/down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "page down"),
		),
	}
}

func defaultDriftStyles() driftStyles {
	return driftStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		bold:    lipgloss.NewStyle().Bold(true),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(1, 2),
		statusBar: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1),
		stat: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(12),
		statValue: lipgloss.NewStyle().
			Bold(true),
	}
}

// NewDriftModel creates a drift review model.
func NewDriftModel(summary DriftSummary) DriftModel {
	return DriftModel{
		summary:  summary,
		decision: DriftPending,
		keymap:   defaultDriftKeyMap(),
		styles:   defaultDriftStyles(),
	}
}

// Init implements tea.Model.
func (m DriftModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m DriftModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 6
		footerHeight := 5
		viewportHeight := m.height - headerHeight - footerHeight

		if !m.ready {
			m.viewport = viewport.New(m.width-4, viewportHeight)
			m.viewport.SetContent(m.renderChanges())
			m.ready = true
		} else {
			m.viewport.Width = m.width - 4
			m.viewport.Height = viewportHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Accept):
			m.decision = DriftAccepted
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Reject), key.Matches(msg, m.keymap.Quit):
			m.decision = DriftRejected
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keymap.Up),
			key.Matches(msg, m.keymap.Down),
			key.Matches(msg, m.keymap.PageUp),
			key.Matches(msg, m.keymap.PageDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m DriftModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(m.styles.title.Render("Environment Drift"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		m.styles.stat.Render("Baseline:"),
		m.styles.statValue.Render(m.summary.BaselinePath)))
	if m.summary.BaselineTakenAt != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.stat.Render("Taken:"),
			m.styles.subtle.Render(m.summary.BaselineTakenAt)))
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		m.styles.stat.Render("Changes:"),
		m.styles.warning.Render(fmt.Sprintf("%d", len(m.summary.Changes)))))
	b.WriteString("\n")

	b.WriteString(m.styles.border.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.styles.subtle.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)))
	b.WriteString("\n\n")

	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.renderPrompt())
	}

	return b.String()
}

func (m DriftModel) renderChanges() string {
	if len(m.summary.Changes) == 0 {
		return m.styles.subtle.Render("No differences")
	}
	var b strings.Builder
	for _, change := range m.summary.Changes {
		b.WriteString(m.styles.warning.Render("~ "))
		b.WriteString(change)
		b.WriteString("\n")
	}
	return b.String()
}

func (m DriftModel) renderPrompt() string {
	var b strings.Builder

	b.WriteString(m.styles.statusBar.Render("Accept the current environment as the new baseline?"))
	b.WriteString("\n\n")

	accept := m.styles.success.Render("[y]es")
	reject := m.styles.error.Render("[n]o")
	help := m.styles.subtle.Render("[?]help")
	b.WriteString(fmt.Sprintf("  %s  %s  %s", accept, reject, help))
	b.WriteString("\n")

	return b.String()
}

func (m DriftModel) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.bold.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"y / Enter", "Accept drift, update the baseline"},
		{"n / Esc", "Reject drift, keep the baseline"},
		{"j / k", "Scroll changes up/down"},
		{"?", "Toggle help"},
		{"q / Ctrl+C", "Quit (keeps the baseline)"},
	}

	for _, s := range shortcuts {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			m.styles.success.Render(fmt.Sprintf("%-12s", s.key)),
			m.styles.subtle.Render(s.desc)))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.subtle.Render("Press ? to close help"))
	b.WriteString("\n")

	return b.String()
}

// Decision returns the review decision.
func (m DriftModel) Decision() DriftDecision {
	return m.decision
}

// RunDriftReview shows the drift review screen and returns the decision.
func RunDriftReview(summary DriftSummary) (DriftDecision, error) {
	p := tea.NewProgram(NewDriftModel(summary), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return DriftRejected, fmt.Errorf("drift review: %w", err)
	}

	model, ok := finalModel.(DriftModel)
	if !ok {
		return DriftRejected, fmt.Errorf("unexpected model type from drift review")
	}

	return model.Decision(), nil
}
