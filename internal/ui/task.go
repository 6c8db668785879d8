package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Task is a long-running operation displayed behind a spinner. It runs on
// its own goroutine via a tea.Cmd; the returned summary is shown on
// success.
type Task func() (summary string, err error)

// startMsg kicks off the task.
type startMsg struct{}

// doneMsg is sent when the task completes.
type doneMsg struct {
	summary string
	err     error
}

// elapsedTickMsg drives the elapsed-time display.
type elapsedTickMsg time.Time

// TaskModel is the Bubble Tea model for a spinner-fronted task.
type TaskModel struct {
	title   string
	task    Task
	styles  Styles
	spinner spinner.Model

	started  time.Time
	elapsed  time.Duration
	running  bool
	complete bool
	summary  string
	err      error
}

// NewTaskModel creates a task screen for the given title and task.
func NewTaskModel(title string, task Task) TaskModel {
	styles := DefaultStyles()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Info

	return TaskModel{
		title:   title,
		task:    task,
		styles:  styles,
		spinner: s,
		started: time.Now(),
	}
}

// Err returns the task error after the program finishes.
func (m TaskModel) Err() error {
	return m.err
}

// Summary returns the task summary after the program finishes.
func (m TaskModel) Summary() string {
	return m.summary
}

// Init implements tea.Model.
func (m TaskModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		elapsedTick(),
		func() tea.Msg { return startMsg{} },
	)
}

func elapsedTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return elapsedTickMsg(t)
	})
}

// Update implements tea.Model.
func (m TaskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		m.running = true
		task := m.task
		return m, func() tea.Msg {
			summary, err := task()
			return doneMsg{summary: summary, err: err}
		}

	case doneMsg:
		m.running = false
		m.complete = true
		m.summary = msg.summary
		m.err = msg.err
		return m, tea.Quit

	case elapsedTickMsg:
		m.elapsed = time.Since(m.started)
		if m.running {
			return m, elapsedTick()
		}

	case spinner.TickMsg:
		if m.running {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = fmt.Errorf("interrupted")
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m TaskModel) View() string {
	var b strings.Builder

	if m.complete {
		if m.err != nil {
			b.WriteString(m.styles.Error.Render("✗ " + m.title + ": " + m.err.Error()))
		} else {
			b.WriteString(m.styles.Success.Render("✓ " + m.title))
			if m.summary != "" {
				b.WriteString(" ")
				b.WriteString(m.styles.Subtle.Render(m.summary))
			}
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.title)
	if m.elapsed >= time.Second {
		b.WriteString(m.styles.Subtle.Render(fmt.Sprintf(" (%s)", m.elapsed.Round(time.Second))))
	}
	b.WriteString("\n")
	return b.String()
}

// RunTask runs the task behind a spinner UI and returns its summary. It
// blocks until the task completes or the user interrupts it.
func RunTask(title string, task Task) (string, error) {
	program := tea.NewProgram(NewTaskModel(title, task))
	final, err := program.Run()
	if err != nil {
		return "", err
	}
	model, ok := final.(TaskModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type %T", final)
	}
	return model.Summary(), model.Err()
}
