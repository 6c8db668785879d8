package wizard

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dht-tools/dht/internal/config"
	"github.com/dht-tools/dht/internal/detect"
)

// Wizard drives the screen flow and carries state between screens.
type Wizard struct {
	state      State
	dir        string
	configPath string

	detection *detect.Detection
	limits    Limits
	cfg       *config.Config
	preview   string

	result Result
}

// New creates a wizard for a project root.
func New(dir string) *Wizard {
	if dir == "" {
		dir = "."
	}
	defaults := config.DefaultConfig()
	return &Wizard{
		state:      StateWelcome,
		dir:        dir,
		configPath: filepath.Join(dir, config.ConfigFileNames[0]+".yaml"),
		limits: Limits{
			MemoryMB:       defaults.Guardian.MemoryMB,
			CPUPercent:     defaults.Guardian.CPUPercent,
			TimeoutSeconds: defaults.Guardian.TimeoutSeconds,
		},
		result: Result{State: StateWelcome},
	}
}

type programRunner interface {
	Run() (tea.Model, error)
}

// newProgram is a seam for tests.
var newProgram = func(model tea.Model) programRunner {
	return tea.NewProgram(model)
}

// Run executes the flow until a terminal state.
func (w *Wizard) Run() (Result, error) {
	for {
		switch w.state {
		case StateWelcome:
			if err := w.runWelcome(); err != nil {
				return w.fail(err)
			}

		case StateDetecting:
			if err := w.runDetection(); err != nil {
				return w.fail(err)
			}

		case StateLimits:
			if err := w.runLimits(); err != nil {
				return w.fail(err)
			}

		case StateReview:
			if err := w.runReview(); err != nil {
				return w.fail(err)
			}

		case StateSuccess:
			if err := w.runSuccess(); err != nil {
				return w.fail(err)
			}
			w.result.State = StateSuccess
			w.result.Path = w.configPath
			return w.result, nil

		case StateQuit:
			w.result.State = StateQuit
			return w.result, nil

		default:
			return w.fail(fmt.Errorf("unknown wizard state: %v", w.state))
		}
	}
}

func (w *Wizard) runWelcome() error {
	final, err := newProgram(NewWelcomeModel()).Run()
	if err != nil {
		return fmt.Errorf("welcome screen: %w", err)
	}
	model, ok := final.(WelcomeModel)
	if !ok {
		return fmt.Errorf("unexpected model type from welcome screen")
	}

	if model.ShouldContinue() {
		w.state = StateDetecting
	} else {
		w.state = StateQuit
	}
	return nil
}

func (w *Wizard) runDetection() error {
	final, err := newProgram(NewDetectionModel(w.dir)).Run()
	if err != nil {
		return fmt.Errorf("detection screen: %w", err)
	}
	model, ok := final.(DetectionModel)
	if !ok {
		return fmt.Errorf("unexpected model type from detection screen")
	}

	if model.ShouldContinue() {
		w.detection = model.Detection()
		w.state = StateLimits
	} else {
		w.state = StateQuit
	}
	return nil
}

func (w *Wizard) runLimits() error {
	final, err := newProgram(NewLimitsModel(w.limits)).Run()
	if err != nil {
		return fmt.Errorf("budget screen: %w", err)
	}
	model, ok := final.(LimitsModel)
	if !ok {
		return fmt.Errorf("unexpected model type from budget screen")
	}

	switch {
	case model.ShouldContinue():
		w.limits = model.Limits()
		if err := w.buildConfig(); err != nil {
			return err
		}
		w.state = StateReview
	case model.ShouldGoBack():
		w.state = StateDetecting
	default:
		w.state = StateQuit
	}
	return nil
}

func (w *Wizard) runReview() error {
	final, err := newProgram(NewReviewModel(w.preview, w.configPath)).Run()
	if err != nil {
		return fmt.Errorf("review screen: %w", err)
	}
	model, ok := final.(ReviewModel)
	if !ok {
		return fmt.Errorf("unexpected model type from review screen")
	}

	switch {
	case model.ShouldGoBack():
		w.state = StateLimits
	case model.ShouldContinue():
		if err := config.WriteConfig(w.cfg, w.configPath); err != nil {
			return err
		}
		w.state = StateSuccess
	default:
		w.state = StateQuit
	}
	return nil
}

func (w *Wizard) runSuccess() error {
	if _, err := newProgram(NewSuccessModel(w.configPath)).Run(); err != nil {
		return fmt.Errorf("success screen: %w", err)
	}
	return nil
}

// buildConfig assembles the config from the defaults, the accepted budget,
// and the detection results.
func (w *Wizard) buildConfig() error {
	cfg := config.DefaultConfig()
	cfg.Guardian.MemoryMB = w.limits.MemoryMB
	cfg.Guardian.CPUPercent = w.limits.CPUPercent
	cfg.Guardian.TimeoutSeconds = w.limits.TimeoutSeconds
	cfg.Snapshot.EnvAllowlist = allowlistFor(w.detection)

	if err := config.Validate(cfg); err != nil {
		return err
	}

	preview, err := config.Render(cfg)
	if err != nil {
		return err
	}

	w.cfg = cfg
	w.preview = string(preview)
	return nil
}

// allowlistFor trims the snapshot env allowlist to the variable groups the
// detected project types actually use. PATH is always kept.
func allowlistFor(d *detect.Detection) []string {
	allow := []string{"PATH"}
	if d == nil {
		return allow
	}

	python := false
	for _, t := range d.Types {
		switch t {
		case detect.TypePythonUV, detect.TypePythonPoetry,
			detect.TypePythonSetuptools, detect.TypePythonRequirements:
			python = true
		}
	}
	if python {
		allow = append(allow, "VIRTUAL_ENV", "PYTHONPATH", "UV_PYTHON", "PIP_INDEX_URL")
	}
	if d.HasType(detect.TypeNode) {
		allow = append(allow, "NODE_ENV")
	}
	if d.HasType(detect.TypeDocker) {
		allow = append(allow, "DOCKER_HOST")
	}
	return allow
}

func (w *Wizard) fail(err error) (Result, error) {
	w.state = StateError
	w.result.State = StateError
	w.result.Error = err
	return w.result, err
}

// Run is the package entry point used by the init command.
func Run(dir string) (Result, error) {
	return New(dir).Run()
}
