package wizard

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// WelcomeModel is the intro screen.
type WelcomeModel struct {
	styles wizardStyles
	keymap welcomeKeyMap
	next   bool
}

type welcomeKeyMap struct {
	Continue key.Binding
	Quit     key.Binding
}

func defaultWelcomeKeyMap() welcomeKeyMap {
	return welcomeKeyMap{
		Continue: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter/space", "continue"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q/esc", "quit"),
		),
	}
}

// NewWelcomeModel creates the intro screen model.
func NewWelcomeModel() WelcomeModel {
	return WelcomeModel{
		styles: defaultWizardStyles(),
		keymap: defaultWelcomeKeyMap(),
	}
}

// Init implements tea.Model.
func (m WelcomeModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m WelcomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keymap.Continue):
			m.next = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m WelcomeModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render(banner()))
	b.WriteString("\n")
	b.WriteString(renderStepIndicator(StateWelcome, m.styles))
	b.WriteString("\n\n")
	b.WriteString("This sets up dht for the current project:\n")
	b.WriteString(m.styles.subtle.Render("  detect the project type, pick a resource budget, write .dhtconfig.yaml"))
	b.WriteString("\n\n")
	b.WriteString(renderHelp([]string{"enter continue", "q quit"}, m.styles))
	b.WriteString("\n")

	return b.String()
}

// ShouldContinue reports whether the user chose to proceed.
func (m WelcomeModel) ShouldContinue() bool {
	return m.next
}
