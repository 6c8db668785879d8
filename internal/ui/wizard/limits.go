package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Limits is the budget collected from the user.
type Limits struct {
	MemoryMB       int
	CPUPercent     int
	TimeoutSeconds int
}

// LimitsModel collects the guardian budget through three text fields.
type LimitsModel struct {
	styles   wizardStyles
	keymap   limitsKeyMap
	inputs   []textinput.Model
	focus    int
	errMsg   string
	limits   Limits
	next     bool
	goneBack bool
}

type limitsKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Accept key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func defaultLimitsKeyMap() limitsKeyMap {
	return limitsKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

var limitFieldLabels = []string{"memory ceiling (MB)", "cpu ceiling (%)", "timeout (seconds)"}

// NewLimitsModel creates the budget screen seeded with defaults.
func NewLimitsModel(defaults Limits) LimitsModel {
	seeds := []int{defaults.MemoryMB, defaults.CPUPercent, defaults.TimeoutSeconds}
	inputs := make([]textinput.Model, len(seeds))
	for i, seed := range seeds {
		in := textinput.New()
		in.SetValue(strconv.Itoa(seed))
		in.CharLimit = 8
		in.Width = 10
		inputs[i] = in
	}
	inputs[0].Focus()

	return LimitsModel{
		styles: defaultWizardStyles(),
		keymap: defaultLimitsKeyMap(),
		inputs: inputs,
		limits: defaults,
	}
}

// Init implements tea.Model.
func (m LimitsModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m LimitsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Back):
			m.goneBack = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Next):
			m.setFocus((m.focus + 1) % len(m.inputs))
			return m, nil

		case key.Matches(msg, m.keymap.Prev):
			m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
			return m, nil

		case key.Matches(msg, m.keymap.Accept):
			limits, err := m.parse()
			if err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			m.limits = limits
			m.next = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *LimitsModel) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
	m.errMsg = ""
}

func (m LimitsModel) parse() (Limits, error) {
	values := make([]int, len(m.inputs))
	for i, in := range m.inputs {
		n, err := strconv.Atoi(strings.TrimSpace(in.Value()))
		if err != nil {
			return Limits{}, fmt.Errorf("%s: not a number", limitFieldLabels[i])
		}
		if n <= 0 {
			return Limits{}, fmt.Errorf("%s: must be positive", limitFieldLabels[i])
		}
		values[i] = n
	}
	return Limits{
		MemoryMB:       values[0],
		CPUPercent:     values[1],
		TimeoutSeconds: values[2],
	}, nil
}

// View implements tea.Model.
func (m LimitsModel) View() string {
	var b strings.Builder

	b.WriteString(renderStepIndicator(StateLimits, m.styles))
	b.WriteString("\n\n")
	b.WriteString(m.styles.subtitle.Render("Resource budget for guarded commands"))
	b.WriteString("\n")

	for i, in := range m.inputs {
		marker := "  "
		label := m.styles.unfocused
		if i == m.focus {
			marker = m.styles.focused.Render("> ")
			label = m.styles.focused
		}
		b.WriteString(marker)
		b.WriteString(label.Render(fmt.Sprintf("%-22s", limitFieldLabels[i])))
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.error.Render("✗ " + m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderHelp([]string{"tab next", "enter accept", "esc back", "ctrl+c quit"}, m.styles))
	b.WriteString("\n")

	return b.String()
}

// ShouldContinue reports whether the user accepted the budget.
func (m LimitsModel) ShouldContinue() bool {
	return m.next
}

// ShouldGoBack reports whether the user wants the previous screen.
func (m LimitsModel) ShouldGoBack() bool {
	return m.goneBack
}

// Limits returns the accepted budget.
func (m LimitsModel) Limits() Limits {
	return m.limits
}
