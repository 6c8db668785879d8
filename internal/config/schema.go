// Package config provides configuration management for dht.
package config

import (
	"time"

	"github.com/google/shlex"

	errs "github.com/dht-tools/dht/internal/errors"
	"github.com/dht-tools/dht/internal/guardian"
	"github.com/dht-tools/dht/internal/toolchain"
)

// Config is the root configuration for dht, loaded from .dhtconfig.yaml.
type Config struct {
	// Guardian configures the base resource budget for guarded runs.
	Guardian GuardianConfig `mapstructure:"guardian" json:"guardian" yaml:"guardian"`
	// Operations overrides the budget per operation class.
	Operations OperationsConfig `mapstructure:"operations" json:"operations" yaml:"operations"`
	// Retry configures the caller-side retry wrapper.
	Retry RetryConfig `mapstructure:"retry" json:"retry" yaml:"retry"`
	// Tools declares extra or overridden tool definitions.
	Tools []ToolConfig `mapstructure:"tools" json:"tools,omitempty" yaml:"tools,omitempty"`
	// Snapshot configures environment snapshot capture.
	Snapshot SnapshotConfig `mapstructure:"snapshot" json:"snapshot" yaml:"snapshot"`
	// Output configures output settings.
	Output OutputConfig `mapstructure:"output" json:"output" yaml:"output"`
}

// GuardianConfig is the serialized form of a guardian.LimitPolicy.
type GuardianConfig struct {
	// MemoryMB is the hard aggregate RSS ceiling.
	MemoryMB int `mapstructure:"memory_mb" json:"memory_mb" yaml:"memory_mb"`
	// CPUPercent is the sustained CPU ceiling in percent of one core.
	CPUPercent int `mapstructure:"cpu_percent" json:"cpu_percent" yaml:"cpu_percent"`
	// TimeoutSeconds is the wall-clock ceiling.
	TimeoutSeconds int `mapstructure:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
	// PollIntervalSeconds is the monitor sampling cadence.
	PollIntervalSeconds float64 `mapstructure:"poll_interval_seconds" json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	// CPUSustainedPolls is the consecutive-breach count for a CPU kill.
	CPUSustainedPolls int `mapstructure:"cpu_sustained_polls" json:"cpu_sustained_polls" yaml:"cpu_sustained_polls"`
	// GraceSeconds is the terminate-to-kill escalation window.
	GraceSeconds float64 `mapstructure:"grace_seconds" json:"grace_seconds" yaml:"grace_seconds"`
}

// Policy converts the config to a guardian policy.
func (g GuardianConfig) Policy() guardian.LimitPolicy {
	return guardian.LimitPolicy{
		MemoryMB:          g.MemoryMB,
		CPUPercent:        g.CPUPercent,
		Timeout:           time.Duration(g.TimeoutSeconds) * time.Second,
		PollInterval:      time.Duration(g.PollIntervalSeconds * float64(time.Second)),
		CPUSustainedPolls: g.CPUSustainedPolls,
	}
}

// Grace returns the escalation window as a duration.
func (g GuardianConfig) Grace() time.Duration {
	return time.Duration(g.GraceSeconds * float64(time.Second))
}

// LimitOverride adjusts the base budget for one operation class.
// Zero fields inherit from the base.
type LimitOverride struct {
	MemoryMB            int     `mapstructure:"memory_mb" json:"memory_mb,omitempty" yaml:"memory_mb,omitempty"`
	CPUPercent          int     `mapstructure:"cpu_percent" json:"cpu_percent,omitempty" yaml:"cpu_percent,omitempty"`
	TimeoutSeconds      int     `mapstructure:"timeout_seconds" json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	PollIntervalSeconds float64 `mapstructure:"poll_interval_seconds" json:"poll_interval_seconds,omitempty" yaml:"poll_interval_seconds,omitempty"`
}

// apply layers the override over a base policy.
func (o LimitOverride) apply(base guardian.LimitPolicy) guardian.LimitPolicy {
	if o.MemoryMB > 0 {
		base.MemoryMB = o.MemoryMB
	}
	if o.CPUPercent > 0 {
		base.CPUPercent = o.CPUPercent
	}
	if o.TimeoutSeconds > 0 {
		base.Timeout = time.Duration(o.TimeoutSeconds) * time.Second
	}
	if o.PollIntervalSeconds > 0 {
		base.PollInterval = time.Duration(o.PollIntervalSeconds * float64(time.Second))
	}
	return base
}

// OperationsConfig holds per-class budget overrides.
type OperationsConfig struct {
	Probe   LimitOverride `mapstructure:"probe" json:"probe,omitempty" yaml:"probe,omitempty"`
	Install LimitOverride `mapstructure:"install" json:"install,omitempty" yaml:"install,omitempty"`
	Build   LimitOverride `mapstructure:"build" json:"build,omitempty" yaml:"build,omitempty"`
	Run     LimitOverride `mapstructure:"run" json:"run,omitempty" yaml:"run,omitempty"`
}

// RetryConfig configures the retry wrapper.
type RetryConfig struct {
	// MaxAttempts bounds the total attempts, including the first.
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" yaml:"max_attempts"`
	// InitialDelayMS is the first backoff delay in milliseconds.
	InitialDelayMS int `mapstructure:"initial_delay_ms" json:"initial_delay_ms" yaml:"initial_delay_ms"`
	// MaxDelayMS caps the backoff delay in milliseconds.
	MaxDelayMS int `mapstructure:"max_delay_ms" json:"max_delay_ms" yaml:"max_delay_ms"`
}

// Guardian converts the config to guardian retry settings.
func (r RetryConfig) Guardian() guardian.RetryConfig {
	return guardian.RetryConfig{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: time.Duration(r.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(r.MaxDelayMS) * time.Millisecond,
	}
}

// ToolConfig declares or overrides one tool in the registry.
type ToolConfig struct {
	// Name is the registry key.
	Name string `mapstructure:"name" json:"name" yaml:"name"`
	// Path is the executable; empty keeps the builtin executable.
	Path string `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	// VersionCommand is a full version invocation, e.g. "terraform version".
	// It is split into argv without shell interpretation.
	VersionCommand string `mapstructure:"version_command" json:"version_command,omitempty" yaml:"version_command,omitempty"`
	// VersionPattern overrides the version extraction regex.
	VersionPattern string `mapstructure:"version_pattern" json:"version_pattern,omitempty" yaml:"version_pattern,omitempty"`
	// InstallHint tells the user how to get the tool.
	InstallHint string `mapstructure:"install_hint" json:"install_hint,omitempty" yaml:"install_hint,omitempty"`
}

// Spec converts the tool config to a registry definition, layering over
// the builtin spec when one exists.
func (t ToolConfig) Spec(registry *toolchain.Registry) (toolchain.ToolSpec, error) {
	const op = "config.ToolConfig.Spec"

	spec, err := registry.Lookup(t.Name)
	if err != nil {
		spec = toolchain.ToolSpec{Name: t.Name, VersionArgs: []string{"--version"}}
	}
	spec.Source = "config"

	if t.Path != "" {
		spec.Executable = t.Path
	}
	if t.VersionCommand != "" {
		argv, err := shlex.Split(t.VersionCommand)
		if err != nil || len(argv) == 0 {
			return toolchain.ToolSpec{}, errs.ConfigWrap(err, op, "invalid version_command").
				WithDetail("tool", t.Name)
		}
		spec.Executable = argv[0]
		spec.VersionArgs = argv[1:]
	}
	if t.VersionPattern != "" {
		spec.VersionPattern = t.VersionPattern
	}
	if t.InstallHint != "" {
		spec.InstallHint = t.InstallHint
	}
	return spec, nil
}

// SnapshotConfig configures environment snapshot capture.
type SnapshotConfig struct {
	// File is the default snapshot output path.
	File string `mapstructure:"file" json:"file" yaml:"file"`
	// EnvAllowlist names the environment variables worth recording.
	// Everything else is omitted: snapshots travel between machines.
	EnvAllowlist []string `mapstructure:"env_allowlist" json:"env_allowlist" yaml:"env_allowlist"`
}

// OutputConfig configures output settings.
type OutputConfig struct {
	// Format is "text" or "json".
	Format string `mapstructure:"format" json:"format" yaml:"format"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color" yaml:"color"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose" json:"verbose" yaml:"verbose"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	// LogFile redirects logs to a file when set.
	LogFile string `mapstructure:"log_file" json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Guardian: GuardianConfig{
			MemoryMB:            2048,
			CPUPercent:          80,
			TimeoutSeconds:      900,
			PollIntervalSeconds: 1.0,
			CPUSustainedPolls:   guardian.DefaultCPUSustainedPolls,
			GraceSeconds:        2.0,
		},
		Operations: OperationsConfig{
			Install: LimitOverride{TimeoutSeconds: 600},
			Probe:   LimitOverride{TimeoutSeconds: 30, MemoryMB: 256, PollIntervalSeconds: 0.2},
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialDelayMS: 500,
			MaxDelayMS:     10000,
		},
		Snapshot: SnapshotConfig{
			File: "env.snapshot.yaml",
			EnvAllowlist: []string{
				"PATH", "VIRTUAL_ENV", "PYTHONPATH", "UV_PYTHON",
				"PIP_INDEX_URL", "NODE_ENV", "DOCKER_HOST",
			},
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}

// PolicySet resolves one budget per operation class from the base policy
// and the per-class overrides.
func (c *Config) PolicySet() toolchain.PolicySet {
	base := c.Guardian.Policy()
	return toolchain.PolicySet{
		Probe:   c.Operations.Probe.apply(base),
		Install: c.Operations.Install.apply(base),
		Build:   c.Operations.Build.apply(base),
		Run:     c.Operations.Run.apply(base),
	}
}

// ConfigFileNames to search for.
var ConfigFileNames = []string{
	".dhtconfig",
	"dhtconfig",
}

// ConfigFileExtensions supported by Viper.
var ConfigFileExtensions = []string{
	"yaml",
	"yml",
}
