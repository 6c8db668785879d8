package wizard

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dht-tools/dht/internal/detect"
)

// detectedMsg carries the detection result back into the model.
type detectedMsg struct {
	detection *detect.Detection
	err       error
}

// DetectionModel runs project detection and shows what was found.
type DetectionModel struct {
	styles    wizardStyles
	keymap    detectionKeyMap
	spinner   spinner.Model
	dir       string
	detection *detect.Detection
	err       error
	done      bool
	next      bool
}

type detectionKeyMap struct {
	Continue key.Binding
	Quit     key.Binding
}

func defaultDetectionKeyMap() detectionKeyMap {
	return detectionKeyMap{
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

// NewDetectionModel creates the detection screen for a project root.
func NewDetectionModel(dir string) DetectionModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return DetectionModel{
		styles:  defaultWizardStyles(),
		keymap:  defaultDetectionKeyMap(),
		spinner: s,
		dir:     dir,
	}
}

// Init implements tea.Model.
func (m DetectionModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runDetection())
}

func (m DetectionModel) runDetection() tea.Cmd {
	dir := m.dir
	return func() tea.Msg {
		d, err := detect.Detect(dir)
		return detectedMsg{detection: d, err: err}
	}
}

// Update implements tea.Model.
func (m DetectionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case detectedMsg:
		m.detection = msg.detection
		m.err = msg.err
		m.done = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Continue):
			if m.done {
				m.next = true
				return m, tea.Quit
			}

		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m DetectionModel) View() string {
	var b strings.Builder

	b.WriteString(renderStepIndicator(StateDetecting, m.styles))
	b.WriteString("\n\n")

	switch {
	case !m.done:
		b.WriteString(m.spinner.View())
		b.WriteString(" inspecting ")
		b.WriteString(m.styles.value.Render(m.dir))
		b.WriteString(" ...\n")

	case m.err != nil:
		b.WriteString(m.styles.error.Render("✗ detection failed: " + m.err.Error()))
		b.WriteString("\n")
		b.WriteString(m.styles.subtle.Render("  continuing with an empty detection"))
		b.WriteString("\n\n")
		b.WriteString(renderHelp([]string{"enter continue", "q quit"}, m.styles))

	default:
		if len(m.detection.Types) == 0 {
			b.WriteString(m.styles.subtle.Render("no known project markers found"))
			b.WriteString("\n")
		} else {
			b.WriteString(m.styles.success.Render("✓ detected:"))
			b.WriteString("\n")
			for _, t := range m.detection.Types {
				b.WriteString(m.styles.selected.Render("• " + string(t)))
				b.WriteString("\n")
			}
			if m.detection.ProjectName != "" {
				b.WriteString(m.styles.label.Render("project name"))
				b.WriteString(m.styles.value.Render(m.detection.ProjectName))
				b.WriteString("\n")
			}
			if m.detection.PythonRequires != "" {
				b.WriteString(m.styles.label.Render("requires-python"))
				b.WriteString(m.styles.value.Render(m.detection.PythonRequires))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(renderHelp([]string{"enter continue", "q quit"}, m.styles))
	}

	b.WriteString("\n")
	return b.String()
}

// ShouldContinue reports whether the user chose to proceed.
func (m DetectionModel) ShouldContinue() bool {
	return m.next
}

// Detection returns the detection result, which may be nil when detection
// failed and the user continued anyway.
func (m DetectionModel) Detection() *detect.Detection {
	return m.detection
}
