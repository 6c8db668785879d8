package wizard

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// ReviewModel previews the rendered config before it is written.
type ReviewModel struct {
	styles   wizardStyles
	keymap   reviewKeyMap
	preview  string
	path     string
	next     bool
	goneBack bool
}

type reviewKeyMap struct {
	Confirm key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func defaultReviewKeyMap() reviewKeyMap {
	return reviewKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter", "y"),
			key.WithHelp("enter/y", "write config"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// NewReviewModel creates the review screen for a rendered config.
func NewReviewModel(preview, path string) ReviewModel {
	return ReviewModel{
		styles:  defaultWizardStyles(),
		keymap:  defaultReviewKeyMap(),
		preview: preview,
		path:    path,
	}
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keymap.Confirm):
			m.next = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Back):
			m.goneBack = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	var b strings.Builder

	b.WriteString(renderStepIndicator(StateReview, m.styles))
	b.WriteString("\n\n")
	b.WriteString(m.styles.subtitle.Render("About to write " + m.path))
	b.WriteString("\n")
	b.WriteString(m.styles.border.Render(strings.TrimRight(m.preview, "\n")))
	b.WriteString("\n\n")
	b.WriteString(renderHelp([]string{"enter write", "esc back", "q quit"}, m.styles))
	b.WriteString("\n")

	return b.String()
}

// ShouldContinue reports whether the user confirmed the write.
func (m ReviewModel) ShouldContinue() bool {
	return m.next
}

// ShouldGoBack reports whether the user wants the budget screen again.
func (m ReviewModel) ShouldGoBack() bool {
	return m.goneBack
}
