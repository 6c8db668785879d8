// Package snapshot captures and compares environment snapshots: platform,
// detected project shape, tool availability, git state, and selected
// environment variables, serialized as YAML so they can travel between
// machines and be diffed later.
package snapshot

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dht-tools/dht/internal/detect"
	errs "github.com/dht-tools/dht/internal/errors"
	"github.com/dht-tools/dht/internal/fileutil"
	"github.com/dht-tools/dht/internal/security"
	"github.com/dht-tools/dht/internal/toolchain"
)

// SchemaVersion identifies the snapshot file format.
const SchemaVersion = 1

// maxSnapshotBytes bounds how much of a snapshot file Load will read.
const maxSnapshotBytes = 4 << 20

// Platform describes the host the snapshot was taken on.
type Platform struct {
	OS       string `yaml:"os" json:"os"`
	Arch     string `yaml:"arch" json:"arch"`
	Hostname string `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	NumCPU   int    `yaml:"num_cpu" json:"num_cpu"`
}

// GitInfo describes the repository state at capture time.
type GitInfo struct {
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`
	Dirty  bool   `yaml:"dirty" json:"dirty"`
}

// Snapshot is a point-in-time record of a development environment.
type Snapshot struct {
	Schema  int       `yaml:"schema" json:"schema"`
	ID      string    `yaml:"id" json:"id"`
	TakenAt time.Time `yaml:"taken_at" json:"taken_at"`

	Platform Platform               `yaml:"platform" json:"platform"`
	Project  *detect.Detection      `yaml:"project,omitempty" json:"project,omitempty"`
	Tools    []toolchain.ToolStatus `yaml:"tools,omitempty" json:"tools,omitempty"`
	Git      *GitInfo               `yaml:"git,omitempty" json:"git,omitempty"`
	Env      map[string]string      `yaml:"env,omitempty" json:"env,omitempty"`
}

// Capturer assembles snapshots.
type Capturer struct {
	runner *toolchain.Runner
	logger *log.Logger
}

// NewCapturer creates a snapshot capturer. The runner probes tool
// availability; logger may be nil.
func NewCapturer(runner *toolchain.Runner, logger *log.Logger) *Capturer {
	if logger == nil {
		logger = log.New(os.Stderr)
		logger.SetLevel(log.FatalLevel)
	}
	return &Capturer{runner: runner, logger: logger}
}

// Capture records the environment rooted at dir. Sections that cannot be
// gathered (no git repository, unreadable manifests) are omitted rather
// than failing the whole capture; only tool probing is fatal.
func (c *Capturer) Capture(ctx context.Context, dir string, envAllowlist []string) (*Snapshot, error) {
	const op = "snapshot.Capture"

	snap := &Snapshot{
		Schema:  SchemaVersion,
		ID:      uuid.NewString(),
		TakenAt: time.Now().UTC(),
		Platform: Platform{
			OS:     runtime.GOOS,
			Arch:   runtime.GOARCH,
			NumCPU: runtime.NumCPU(),
		},
	}
	if host, err := os.Hostname(); err == nil {
		snap.Platform.Hostname = host
	}

	detection, err := detect.Detect(dir)
	if err != nil {
		c.logger.Warn("project detection failed", "dir", dir, "error", err)
	} else {
		snap.Project = detection
	}

	tools, err := c.runner.ProbeAll(ctx)
	if err != nil {
		return nil, errs.SnapshotWrap(err, op, "tool probing failed")
	}
	snap.Tools = tools

	if info, err := readGitInfo(dir); err != nil {
		c.logger.Debug("no git state captured", "dir", dir, "error", err)
	} else {
		snap.Git = info
	}

	snap.Env = filterEnv(envAllowlist)

	return snap, nil
}

// filterEnv returns the allowlisted subset of the process environment,
// with embedded credentials scrubbed before anything hits disk.
// Variables that are unset are omitted rather than recorded as empty.
func filterEnv(allowlist []string) map[string]string {
	env := make(map[string]string, len(allowlist))
	for _, name := range allowlist {
		if value, ok := os.LookupEnv(name); ok {
			env[name] = value
		}
	}
	return security.RedactEnvMap(env)
}

// Save writes the snapshot to path as YAML.
func Save(snap *Snapshot, path string) error {
	const op = "snapshot.Save"

	data, err := yaml.Marshal(snap)
	if err != nil {
		return errs.SnapshotWrap(err, op, "failed to marshal snapshot")
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return errs.SnapshotWrap(err, op, "failed to write snapshot file")
	}
	return nil
}

// Load reads a snapshot from path.
func Load(path string) (*Snapshot, error) {
	const op = "snapshot.Load"

	data, err := fileutil.ReadFileLimited(path, maxSnapshotBytes)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound(op, "snapshot file not found").WithDetail("path", path)
		}
		return nil, errs.SnapshotWrap(err, op, "failed to read snapshot file")
	}

	snap := &Snapshot{}
	if err := yaml.Unmarshal(data, snap); err != nil {
		return nil, errs.SnapshotWrap(err, op, "failed to parse snapshot file")
	}
	if snap.Schema > SchemaVersion {
		return nil, errs.Snapshot(op, "snapshot schema is newer than this build understands").
			WithDetail("schema", snap.Schema)
	}
	return snap, nil
}
