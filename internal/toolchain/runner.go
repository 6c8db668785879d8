package toolchain

import (
	"context"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	errs "github.com/dht-tools/dht/internal/errors"
	"github.com/dht-tools/dht/internal/guardian"
)

// probeConcurrency bounds parallel version probes in ProbeAll.
const probeConcurrency = 4

// PolicySet maps operation classes to resource budgets.
type PolicySet struct {
	Probe   guardian.LimitPolicy
	Install guardian.LimitPolicy
	Build   guardian.LimitPolicy
	Run     guardian.LimitPolicy
}

// DefaultPolicySet uses the guardian presets.
func DefaultPolicySet() PolicySet {
	return PolicySet{
		Probe:   guardian.ProbePolicy(),
		Install: guardian.InstallPolicy(),
		Build:   guardian.BuildPolicy(),
		Run:     guardian.DefaultPolicy(),
	}
}

// For returns the budget for an operation class.
func (p PolicySet) For(class OpClass) guardian.LimitPolicy {
	switch class {
	case ClassProbe:
		return p.Probe
	case ClassInstall:
		return p.Install
	case ClassBuild:
		return p.Build
	default:
		return p.Run
	}
}

// ToolStatus is the outcome of probing one tool.
type ToolStatus struct {
	Name       string          `json:"name" yaml:"name"`
	Present    bool            `json:"present" yaml:"present"`
	Version    *semver.Version `json:"version,omitempty" yaml:"version,omitempty"`
	RawVersion string          `json:"raw_version,omitempty" yaml:"raw_version,omitempty"`
	Hint       string          `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Runner executes wrapped tools through the guardian.
type Runner struct {
	registry *Registry
	guardian *guardian.Guardian
	policies PolicySet
	logger   *log.Logger
}

// NewRunner creates a Runner. A nil logger is replaced with a discard
// logger, matching the guardian's convention.
func NewRunner(registry *Registry, g *guardian.Guardian, policies PolicySet, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		registry: registry,
		guardian: g,
		policies: policies,
		logger:   logger,
	}
}

// Exec runs a registered tool with the given arguments under the budget of
// the operation class. Spawn failures propagate as errors; the tool's own
// failures come back in the Result.
func (r *Runner) Exec(ctx context.Context, tool string, args []string, class OpClass, dir string) (*guardian.Result, error) {
	spec, err := r.registry.Lookup(tool)
	if err != nil {
		return nil, err
	}

	cmd := guardian.Command{
		Argv: append([]string{spec.Executable}, args...),
		Dir:  dir,
	}
	r.logger.Debug("tool exec", "tool", tool, "class", class, "args", args)
	return r.guardian.Run(ctx, cmd, r.policies.For(class))
}

// Probe checks whether a tool is installed and parses its version. A tool
// that is missing or fails its version command is reported as absent, not
// as an error: absence is a finding, not a failure of the probe itself.
func (r *Runner) Probe(ctx context.Context, tool string) (ToolStatus, error) {
	spec, err := r.registry.Lookup(tool)
	if err != nil {
		return ToolStatus{}, err
	}

	status := ToolStatus{Name: spec.Name, Hint: spec.InstallHint}

	cmd := guardian.Command{Argv: append([]string{spec.Executable}, spec.VersionArgs...)}
	res, err := r.guardian.Run(ctx, cmd, r.policies.For(ClassProbe))
	if err != nil {
		if errs.IsKind(err, errs.KindSpawn) {
			return status, nil
		}
		return ToolStatus{}, err
	}
	if !res.Success() {
		r.logger.Debug("version probe failed", "tool", tool, "result", res.String())
		return status, nil
	}

	status.Present = true
	status.Hint = ""
	status.RawVersion = strings.TrimSpace(firstLine(res.Stdout + res.Stderr))

	re, err := spec.versionRegexp()
	if err != nil {
		return ToolStatus{}, err
	}
	if match := re.FindString(status.RawVersion); match != "" {
		if v, verr := semver.NewVersion(match); verr == nil {
			status.Version = v
		}
	}
	return status, nil
}

// ProbeAll probes every registered tool with bounded parallelism and
// returns statuses in registry order.
func (r *Runner) ProbeAll(ctx context.Context) ([]ToolStatus, error) {
	specs := r.registry.List()
	statuses := make([]ToolStatus, len(specs))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(probeConcurrency)
	for i, spec := range specs {
		group.Go(func() error {
			status, err := r.Probe(ctx, spec.Name)
			if err != nil {
				return err
			}
			statuses[i] = status
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
