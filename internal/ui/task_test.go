package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drive feeds a message to the model and returns the updated TaskModel.
func drive(t *testing.T, m TaskModel, msg tea.Msg) (TaskModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(TaskModel)
	require.True(t, ok)
	return model, cmd
}

func TestTaskModelSuccess(t *testing.T) {
	m := NewTaskModel("probing tools", func() (string, error) {
		return "9 tools checked", nil
	})

	m, cmd := drive(t, m, startMsg{})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "probing tools")

	// The start command runs the task and yields its completion message.
	msg := cmd()
	done, ok := msg.(doneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	m, _ = drive(t, m, done)
	assert.NoError(t, m.Err())
	assert.Equal(t, "9 tools checked", m.Summary())
	assert.Contains(t, m.View(), "✓")
	assert.Contains(t, m.View(), "9 tools checked")
}

func TestTaskModelFailure(t *testing.T) {
	taskErr := errors.New("exceeded memory limit")
	m := NewTaskModel("building project", func() (string, error) {
		return "", taskErr
	})

	m, cmd := drive(t, m, startMsg{})
	m, _ = drive(t, m, cmd().(doneMsg))

	assert.ErrorIs(t, m.Err(), taskErr)
	assert.Contains(t, m.View(), "✗")
	assert.Contains(t, m.View(), "exceeded memory limit")
}

func TestTaskModelInterrupt(t *testing.T) {
	m := NewTaskModel("waiting", func() (string, error) {
		return "", nil
	})

	m, cmd := drive(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Error(t, m.Err())
}
