package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dht-tools/dht/internal/config"
	"github.com/dht-tools/dht/internal/detect"
	"github.com/dht-tools/dht/internal/guardian"
	"github.com/dht-tools/dht/internal/snapshot"
	"github.com/dht-tools/dht/internal/toolchain"
)

const pyprojectUV = `[project]
name = "demo"
requires-python = ">=3.11"

[tool.uv]
dev-dependencies = []
`

// TestConfigToGuardedRun walks the whole pipeline: write a config file,
// load it, resolve an operation budget, and run a real command under it.
func TestConfigToGuardedRun(t *testing.T) {
	RequireUnix(t)

	project := NewTestProject(t)
	path := filepath.Join(project.Dir, ".dhtconfig.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))

	cfg, err := config.LoadFromDirectory(project.Dir)
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	policy := cfg.PolicySet().For(toolchain.ClassProbe)
	assert.Equal(t, 30*time.Second, policy.Timeout)

	g := guardian.New(nil, guardian.WithGraceWindow(cfg.Guardian.Grace()))
	result, err := g.Run(context.Background(), guardian.Command{
		Argv: []string{"echo", "guarded"},
		Dir:  project.Dir,
	}, policy)
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, "guarded\n", result.Stdout)
	assert.False(t, result.Killed)
}

// TestTimeoutKillPipeline checks that a configured budget actually kills
// through the same path the CLI uses.
func TestTimeoutKillPipeline(t *testing.T) {
	RequireUnix(t)

	cfg := config.DefaultConfig()
	cfg.Guardian.TimeoutSeconds = 1
	cfg.Guardian.PollIntervalSeconds = 0.05
	require.NoError(t, config.Validate(cfg))

	g := guardian.New(nil, guardian.WithGraceWindow(cfg.Guardian.Grace()))
	start := time.Now()
	result, err := g.Run(context.Background(), guardian.Command{
		Argv: []string{"sleep", "30"},
	}, cfg.Guardian.Policy())
	require.NoError(t, err)

	assert.True(t, result.Killed)
	assert.Equal(t, guardian.KillTimeout, result.Reason)
	assert.Equal(t, guardian.KilledReturnCode, result.ReturnCode)
	assert.Less(t, time.Since(start), 10*time.Second)
}

// TestSnapshotRoundTripOnRealProject captures a detected uv project with
// git state, saves it, reloads it, and diffs it against itself.
func TestSnapshotRoundTripOnRealProject(t *testing.T) {
	RequireUnix(t)

	project := NewTestProject(t)
	project.WriteFile("pyproject.toml", pyprojectUV)
	project.WriteFile("uv.lock", "")
	project.GitInit()

	registry := toolchain.NewRegistry()
	require.NoError(t, registry.Register(toolchain.ToolSpec{
		Name:        "faketool",
		Executable:  "echo",
		VersionArgs: []string{"faketool 1.0.0"},
		Source:      "test",
	}))
	runner := toolchain.NewRunner(registry, guardian.New(nil), toolchain.DefaultPolicySet(), nil)

	capturer := snapshot.NewCapturer(runner, nil)
	snap, err := capturer.Capture(context.Background(), project.Dir, []string{"PATH"})
	require.NoError(t, err)

	require.NotNil(t, snap.Project)
	assert.True(t, snap.Project.HasType(detect.TypePythonUV))
	assert.Equal(t, "demo", snap.Project.ProjectName)

	require.NotNil(t, snap.Git)
	assert.Equal(t, "main", snap.Git.Branch)
	assert.NotEmpty(t, snap.Git.Commit)
	assert.False(t, snap.Git.Dirty)

	path := filepath.Join(project.Dir, "env.snapshot.yaml")
	require.NoError(t, snapshot.Save(snap, path))

	loaded, err := snapshot.Load(path)
	require.NoError(t, err)

	report := snapshot.Diff(snap, loaded)
	assert.True(t, report.Empty(), "snapshot should diff clean against its own reload: %s", report.String())
}
