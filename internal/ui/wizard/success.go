package wizard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SuccessModel is the final screen confirming the written file.
type SuccessModel struct {
	styles wizardStyles
	path   string
}

// NewSuccessModel creates the final screen for a written config path.
func NewSuccessModel(path string) SuccessModel {
	return SuccessModel{
		styles: defaultWizardStyles(),
		path:   path,
	}
}

// Init implements tea.Model.
func (m SuccessModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Any key dismisses the screen.
func (m SuccessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m SuccessModel) View() string {
	var b strings.Builder

	b.WriteString(renderStepIndicator(StateSuccess, m.styles))
	b.WriteString("\n\n")
	b.WriteString(m.styles.success.Render("✓ wrote " + m.path))
	b.WriteString("\n\n")
	b.WriteString(m.styles.bold.Render("Next steps:"))
	b.WriteString("\n")
	b.WriteString(m.styles.unselected.Render("• dht doctor        check tools against the new budget"))
	b.WriteString("\n")
	b.WriteString(m.styles.unselected.Render("• dht env snapshot  record the current environment"))
	b.WriteString("\n")
	b.WriteString(m.styles.unselected.Render("• dht run -- <cmd>  run a command under the budget"))
	b.WriteString("\n\n")
	b.WriteString(renderHelp([]string{"any key to exit"}, m.styles))
	b.WriteString("\n")

	return b.String()
}
