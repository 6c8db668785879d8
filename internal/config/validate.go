package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/google/shlex"

	errs "github.com/dht-tools/dht/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}

	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning to the validation error.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validate validates a configuration using a default validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: &ValidationError{},
	}
}

// Validate validates the configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateGuardian(cfg.Guardian)
	v.validateOperations(cfg.Operations)
	v.validateRetry(cfg.Retry)
	v.validateTools(cfg.Tools)
	v.validateSnapshot(cfg.Snapshot)
	v.validateOutput(cfg.Output)

	// Print warnings to stderr even if there are no errors
	if v.errors.HasWarnings() {
		fmt.Fprintf(os.Stderr, "\nConfiguration warnings:\n")
		for _, warning := range v.errors.Warnings {
			fmt.Fprintf(os.Stderr, "  - %s\n", warning)
		}
		fmt.Fprintf(os.Stderr, "\n")
	}

	if v.errors.HasErrors() {
		return errs.Validation("config.Validate", v.errors.Error())
	}

	return nil
}

// validateGuardian validates the base resource budget.
func (v *Validator) validateGuardian(cfg GuardianConfig) {
	if cfg.MemoryMB <= 0 {
		v.errors.Addf("guardian.memory_mb: must be positive, got %d", cfg.MemoryMB)
	}
	if cfg.CPUPercent <= 0 {
		v.errors.Addf("guardian.cpu_percent: must be positive, got %d", cfg.CPUPercent)
	}
	if cfg.TimeoutSeconds <= 0 {
		v.errors.Addf("guardian.timeout_seconds: must be positive, got %d", cfg.TimeoutSeconds)
	}
	if cfg.PollIntervalSeconds <= 0 {
		v.errors.Addf("guardian.poll_interval_seconds: must be positive, got %g", cfg.PollIntervalSeconds)
	}
	if cfg.CPUSustainedPolls < 0 {
		v.errors.Addf("guardian.cpu_sustained_polls: must not be negative, got %d", cfg.CPUSustainedPolls)
	}
	if cfg.GraceSeconds < 0 {
		v.errors.Addf("guardian.grace_seconds: must not be negative, got %g", cfg.GraceSeconds)
	}

	if cfg.CPUPercent > 1600 {
		v.errors.Warnf("guardian.cpu_percent: %d exceeds 16 cores and will likely never trigger", cfg.CPUPercent)
	}
	if cfg.TimeoutSeconds > 0 && cfg.PollIntervalSeconds > float64(cfg.TimeoutSeconds)/4 {
		v.errors.Warnf("guardian.poll_interval_seconds: %g is coarse relative to the %ds timeout; limits may overshoot",
			cfg.PollIntervalSeconds, cfg.TimeoutSeconds)
	}
}

// validateOperations validates per-class budget overrides.
func (v *Validator) validateOperations(cfg OperationsConfig) {
	classes := map[string]LimitOverride{
		"probe":   cfg.Probe,
		"install": cfg.Install,
		"build":   cfg.Build,
		"run":     cfg.Run,
	}
	for name, o := range classes {
		if o.MemoryMB < 0 {
			v.errors.Addf("operations.%s.memory_mb: must not be negative, got %d", name, o.MemoryMB)
		}
		if o.CPUPercent < 0 {
			v.errors.Addf("operations.%s.cpu_percent: must not be negative, got %d", name, o.CPUPercent)
		}
		if o.TimeoutSeconds < 0 {
			v.errors.Addf("operations.%s.timeout_seconds: must not be negative, got %d", name, o.TimeoutSeconds)
		}
		if o.PollIntervalSeconds < 0 {
			v.errors.Addf("operations.%s.poll_interval_seconds: must not be negative, got %g", name, o.PollIntervalSeconds)
		}
	}
}

// validateRetry validates the retry wrapper configuration.
func (v *Validator) validateRetry(cfg RetryConfig) {
	if cfg.MaxAttempts < 1 {
		v.errors.Addf("retry.max_attempts: must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialDelayMS < 0 {
		v.errors.Addf("retry.initial_delay_ms: must not be negative, got %d", cfg.InitialDelayMS)
	}
	if cfg.MaxDelayMS < 0 {
		v.errors.Addf("retry.max_delay_ms: must not be negative, got %d", cfg.MaxDelayMS)
	}
	if cfg.MaxDelayMS > 0 && cfg.InitialDelayMS > cfg.MaxDelayMS {
		v.errors.Addf("retry.initial_delay_ms: %d exceeds retry.max_delay_ms %d", cfg.InitialDelayMS, cfg.MaxDelayMS)
	}
}

// validateTools validates declared tool definitions.
func (v *Validator) validateTools(tools []ToolConfig) {
	seen := make(map[string]bool, len(tools))
	for i, t := range tools {
		if t.Name == "" {
			v.errors.Addf("tools[%d].name: required", i)
			continue
		}
		if seen[t.Name] {
			v.errors.Addf("tools[%d].name: duplicate tool %q", i, t.Name)
		}
		seen[t.Name] = true

		if t.VersionCommand != "" {
			argv, err := shlex.Split(t.VersionCommand)
			if err != nil {
				v.errors.Addf("tools[%d].version_command: %v", i, err)
			} else if len(argv) == 0 {
				v.errors.Addf("tools[%d].version_command: empty after parsing", i)
			}
		}
		if t.VersionPattern != "" {
			if _, err := regexp.Compile(t.VersionPattern); err != nil {
				v.errors.Addf("tools[%d].version_pattern: %v", i, err)
			}
		}
	}
}

// validateSnapshot validates snapshot configuration.
func (v *Validator) validateSnapshot(cfg SnapshotConfig) {
	if cfg.File == "" {
		v.errors.Addf("snapshot.file: required")
	}
	for i, name := range cfg.EnvAllowlist {
		if name == "" {
			v.errors.Addf("snapshot.env_allowlist[%d]: empty variable name", i)
		}
	}
}

// validateOutput validates output configuration.
func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, cfg.LogLevel) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLogLevels, cfg.LogLevel)
	}
}
