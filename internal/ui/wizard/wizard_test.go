package wizard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dht-tools/dht/internal/config"
	"github.com/dht-tools/dht/internal/detect"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestWelcomeContinueAndQuit(t *testing.T) {
	m := NewWelcomeModel()
	updated, _ := m.Update(keyMsg("enter"))
	assert.True(t, updated.(WelcomeModel).ShouldContinue())

	m = NewWelcomeModel()
	updated, _ = m.Update(keyMsg("q"))
	assert.False(t, updated.(WelcomeModel).ShouldContinue())
}

func TestDetectionModelShowsResult(t *testing.T) {
	m := NewDetectionModel(t.TempDir())

	det := &detect.Detection{Types: []detect.ProjectType{detect.TypeNode}, ProjectName: "demo"}
	updated, _ := m.Update(detectedMsg{detection: det})
	dm := updated.(DetectionModel)

	view := dm.View()
	assert.Contains(t, view, "node")
	assert.Contains(t, view, "demo")

	updated, _ = dm.Update(keyMsg("enter"))
	dm = updated.(DetectionModel)
	assert.True(t, dm.ShouldContinue())
	assert.Equal(t, det, dm.Detection())
}

func TestDetectionModelIgnoresContinueWhileRunning(t *testing.T) {
	m := NewDetectionModel(t.TempDir())
	updated, _ := m.Update(keyMsg("enter"))
	assert.False(t, updated.(DetectionModel).ShouldContinue())
}

func TestLimitsParse(t *testing.T) {
	m := NewLimitsModel(Limits{MemoryMB: 2048, CPUPercent: 80, TimeoutSeconds: 900})

	limits, err := m.parse()
	require.NoError(t, err)
	assert.Equal(t, Limits{MemoryMB: 2048, CPUPercent: 80, TimeoutSeconds: 900}, limits)
}

func TestLimitsRejectsBadInput(t *testing.T) {
	m := NewLimitsModel(Limits{MemoryMB: 2048, CPUPercent: 80, TimeoutSeconds: 900})
	m.inputs[0].SetValue("not-a-number")

	_, err := m.parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory ceiling")

	m.inputs[0].SetValue("-5")
	_, err = m.parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestLimitsAcceptStaysOnErrors(t *testing.T) {
	m := NewLimitsModel(Limits{MemoryMB: 2048, CPUPercent: 80, TimeoutSeconds: 900})
	m.inputs[2].SetValue("0")

	updated, _ := m.Update(keyMsg("enter"))
	lm := updated.(LimitsModel)
	assert.False(t, lm.ShouldContinue())
	assert.Contains(t, lm.View(), "must be positive")
}

func TestLimitsBack(t *testing.T) {
	m := NewLimitsModel(Limits{MemoryMB: 2048, CPUPercent: 80, TimeoutSeconds: 900})
	updated, _ := m.Update(keyMsg("esc"))
	assert.True(t, updated.(LimitsModel).ShouldGoBack())
}

func TestReviewConfirmBackQuit(t *testing.T) {
	m := NewReviewModel("guardian:\n  memory_mb: 512\n", ".dhtconfig.yaml")
	assert.Contains(t, m.View(), "memory_mb: 512")

	updated, _ := m.Update(keyMsg("enter"))
	assert.True(t, updated.(ReviewModel).ShouldContinue())

	updated, _ = NewReviewModel("", "x").Update(keyMsg("b"))
	assert.True(t, updated.(ReviewModel).ShouldGoBack())

	updated, _ = NewReviewModel("", "x").Update(keyMsg("q"))
	rm := updated.(ReviewModel)
	assert.False(t, rm.ShouldContinue())
	assert.False(t, rm.ShouldGoBack())
}

func TestAllowlistFor(t *testing.T) {
	assert.Equal(t, []string{"PATH"}, allowlistFor(nil))

	d := &detect.Detection{Types: []detect.ProjectType{detect.TypePythonUV, detect.TypeDocker}}
	allow := allowlistFor(d)
	assert.Contains(t, allow, "VIRTUAL_ENV")
	assert.Contains(t, allow, "DOCKER_HOST")
	assert.NotContains(t, allow, "NODE_ENV")
}

// stubProgram returns a pre-baked final model instead of entering the
// terminal event loop.
type stubProgram struct {
	model tea.Model
}

func (s stubProgram) Run() (tea.Model, error) {
	return s.model, nil
}

// stubScreens replaces the program seam so Run walks the flow without a
// terminal. Each call pops the next final model.
func stubScreens(t *testing.T, models []tea.Model) {
	t.Helper()
	prev := newProgram
	i := 0
	newProgram = func(tea.Model) programRunner {
		require.Less(t, i, len(models), "flow asked for more screens than stubbed")
		m := models[i]
		i++
		return stubProgram{model: m}
	}
	t.Cleanup(func() { newProgram = prev })
}

func TestRunWritesConfig(t *testing.T) {
	dir := t.TempDir()

	welcome := NewWelcomeModel()
	welcome.next = true

	detection := NewDetectionModel(dir)
	detection.done = true
	detection.next = true
	detection.detection = &detect.Detection{Types: []detect.ProjectType{detect.TypeNode}}

	limits := NewLimitsModel(Limits{MemoryMB: 2048, CPUPercent: 80, TimeoutSeconds: 900})
	limits.next = true
	limits.limits = Limits{MemoryMB: 512, CPUPercent: 50, TimeoutSeconds: 120}

	review := NewReviewModel("", "")
	review.next = true

	stubScreens(t, []tea.Model{welcome, detection, limits, review, NewSuccessModel("")})

	result, err := Run(dir)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, result.State)
	assert.Equal(t, filepath.Join(dir, ".dhtconfig.yaml"), result.Path)

	cfg, err := config.LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Guardian.MemoryMB)
	assert.Equal(t, 50, cfg.Guardian.CPUPercent)
	assert.Equal(t, 120, cfg.Guardian.TimeoutSeconds)
	assert.Equal(t, []string{"PATH", "NODE_ENV"}, cfg.Snapshot.EnvAllowlist)
}

func TestRunQuitAtWelcome(t *testing.T) {
	stubScreens(t, []tea.Model{NewWelcomeModel()})

	result, err := Run(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, StateQuit, result.State)
}

func TestRunBackFromReview(t *testing.T) {
	dir := t.TempDir()

	welcome := NewWelcomeModel()
	welcome.next = true

	detection := NewDetectionModel(dir)
	detection.done = true
	detection.next = true

	limits := NewLimitsModel(Limits{MemoryMB: 2048, CPUPercent: 80, TimeoutSeconds: 900})
	limits.next = true
	limits.limits = Limits{MemoryMB: 1024, CPUPercent: 80, TimeoutSeconds: 300}

	reviewBack := NewReviewModel("", "")
	reviewBack.goneBack = true

	limitsAgain := limits
	reviewOK := NewReviewModel("", "")
	reviewOK.next = true

	stubScreens(t, []tea.Model{welcome, detection, limits, reviewBack, limitsAgain, reviewOK, NewSuccessModel("")})

	result, err := Run(dir)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, result.State)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "memory_mb: 1024"))
}

func TestStepIndicatorMarksProgress(t *testing.T) {
	out := renderStepIndicator(StateLimits, defaultWizardStyles())
	assert.Contains(t, out, "Budget")
	assert.Contains(t, out, "✓")
}
