package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/dht-tools/dht/internal/errors"
	"github.com/dht-tools/dht/internal/guardian"
	"github.com/dht-tools/dht/internal/toolchain"
)

func testCapturer(t *testing.T, specs ...toolchain.ToolSpec) *Capturer {
	t.Helper()
	registry := toolchain.NewRegistry()
	for _, spec := range specs {
		require.NoError(t, registry.Register(spec))
	}
	runner := toolchain.NewRunner(registry, guardian.New(nil), toolchain.DefaultPolicySet(), nil)
	return NewCapturer(runner, nil)
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Schema:  SchemaVersion,
		ID:      "test-id",
		TakenAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Platform: Platform{
			OS:     "linux",
			Arch:   "amd64",
			NumCPU: 8,
		},
		Tools: []toolchain.ToolStatus{
			{Name: "python", Present: true, Version: semver.MustParse("3.12.1"), RawVersion: "Python 3.12.1"},
			{Name: "docker", Present: false, Hint: "https://docs.docker.com/get-docker/"},
		},
		Git: &GitInfo{Branch: "main", Commit: "abc123", Dirty: false},
		Env: map[string]string{"PATH": "/usr/bin"},
	}
}

func TestCapture(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test drives unix commands")
	}

	t.Setenv("DHT_SNAPSHOT_TEST_VAR", "hello")
	t.Setenv("DHT_SNAPSHOT_TEST_TOKEN", "tok-very-secret")

	c := testCapturer(t, toolchain.ToolSpec{
		Name:        "faketool",
		Executable:  "echo",
		VersionArgs: []string{"faketool 9.9.9"},
		Source:      "test",
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"x"}`), 0o644))

	snap, err := c.Capture(context.Background(), dir,
		[]string{"DHT_SNAPSHOT_TEST_VAR", "DHT_SNAPSHOT_TEST_TOKEN", "DHT_SNAPSHOT_UNSET_VAR"})
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, snap.Schema)
	assert.NotEmpty(t, snap.ID)
	assert.False(t, snap.TakenAt.IsZero())
	assert.Equal(t, runtime.GOOS, snap.Platform.OS)
	assert.Equal(t, runtime.GOARCH, snap.Platform.Arch)

	require.NotNil(t, snap.Project)
	assert.True(t, snap.Project.HasType("node"))

	var fake *toolchain.ToolStatus
	for i := range snap.Tools {
		if snap.Tools[i].Name == "faketool" {
			fake = &snap.Tools[i]
		}
	}
	require.NotNil(t, fake, "faketool should be probed")
	assert.True(t, fake.Present)
	require.NotNil(t, fake.Version)
	assert.Equal(t, "9.9.9", fake.Version.String())

	// A temp dir is not a git repository.
	assert.Nil(t, snap.Git)

	assert.Equal(t, "hello", snap.Env["DHT_SNAPSHOT_TEST_VAR"])
	assert.Equal(t, "[REDACTED]", snap.Env["DHT_SNAPSHOT_TEST_TOKEN"],
		"secret-named variables are recorded redacted")
	_, recorded := snap.Env["DHT_SNAPSHOT_UNSET_VAR"]
	assert.False(t, recorded, "unset variables are omitted, not recorded as empty")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.snapshot.yaml")

	snap := testSnapshot()
	require.NoError(t, Save(snap, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, snap.ID, loaded.ID)
	assert.True(t, snap.TakenAt.Equal(loaded.TakenAt))
	assert.Equal(t, snap.Platform, loaded.Platform)
	assert.Equal(t, snap.Env, loaded.Env)
	assert.Equal(t, snap.Git, loaded.Git)

	require.Len(t, loaded.Tools, 2)
	assert.Equal(t, "python", loaded.Tools[0].Name)
	require.NotNil(t, loaded.Tools[0].Version)
	assert.Equal(t, "3.12.1", loaded.Tools[0].Version.String())
	assert.False(t, loaded.Tools[1].Present)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestLoadRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: 99\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindSnapshot))
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t-garbage"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindSnapshot))
}
