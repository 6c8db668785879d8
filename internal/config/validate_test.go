package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/dht-tools/dht/internal/errors"
)

func TestValidateDefaultsPass(t *testing.T) {
	require.NoError(t, NewValidator().Validate(DefaultConfig()))
}

func TestValidateGuardianErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Guardian.MemoryMB = 0
	cfg.Guardian.TimeoutSeconds = -1

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
	assert.Contains(t, err.Error(), "guardian.memory_mb")
	assert.Contains(t, err.Error(), "guardian.timeout_seconds")
}

func TestValidateRetryErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.MaxAttempts = 0
	cfg.Retry.InitialDelayMS = 5000
	cfg.Retry.MaxDelayMS = 1000

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.max_attempts")
	assert.Contains(t, err.Error(), "retry.initial_delay_ms")
}

func TestValidateToolErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools = []ToolConfig{
		{Name: ""},
		{Name: "dup"},
		{Name: "dup"},
		{Name: "badcmd", VersionCommand: "unterminated 'quote"},
		{Name: "badpat", VersionPattern: "("},
	}

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tools[0].name")
	assert.Contains(t, err.Error(), "duplicate tool")
	assert.Contains(t, err.Error(), "tools[3].version_command")
	assert.Contains(t, err.Error(), "tools[4].version_pattern")
}

func TestValidateOutputErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "xml"
	cfg.Output.LogLevel = "loud"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
	assert.Contains(t, err.Error(), "output.log_level")
}

func TestValidationErrorWarningsOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Guardian.CPUPercent = 3200

	// A warning alone does not fail validation.
	require.NoError(t, NewValidator().Validate(cfg))
}
