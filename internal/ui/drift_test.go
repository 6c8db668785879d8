package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func driftTestModel() DriftModel {
	m := NewDriftModel(DriftSummary{
		BaselinePath:    "env.snapshot.yaml",
		BaselineTakenAt: "2026-08-01 10:00",
		Changes:         []string{"tool.uv: 0.4.0 -> 0.5.1", "git.dirty: false -> true"},
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(DriftModel)
}

func TestDriftAccept(t *testing.T) {
	m := driftTestModel()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	assert.Equal(t, DriftAccepted, updated.(DriftModel).Decision())
}

func TestDriftRejectAndQuit(t *testing.T) {
	m := driftTestModel()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Equal(t, DriftRejected, updated.(DriftModel).Decision())

	m = driftTestModel()
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, DriftRejected, updated.(DriftModel).Decision())
}

func TestDriftViewShowsChanges(t *testing.T) {
	m := driftTestModel()
	view := m.View()
	assert.Contains(t, view, "env.snapshot.yaml")
	assert.Contains(t, view, "tool.uv")
	assert.Contains(t, view, "new baseline")
}

func TestDriftHelpToggle(t *testing.T) {
	m := driftTestModel()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	dm := updated.(DriftModel)
	assert.Equal(t, DriftPending, dm.Decision())
	assert.Contains(t, dm.View(), "Keyboard Shortcuts")
}
