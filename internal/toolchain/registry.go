// Package toolchain wraps the external tools dht orchestrates: package
// managers, interpreters, containers, version control. Tool definitions are
// declarative; execution always goes through the guardian.
package toolchain

import (
	"regexp"
	"sort"
	"sync"

	errs "github.com/dht-tools/dht/internal/errors"
)

// OpClass buckets tool invocations by the resource budget they get.
type OpClass string

const (
	// ClassProbe covers quick version checks and similar short commands.
	ClassProbe OpClass = "probe"
	// ClassInstall covers dependency installs.
	ClassInstall OpClass = "install"
	// ClassBuild covers project builds.
	ClassBuild OpClass = "build"
	// ClassRun covers arbitrary user commands.
	ClassRun OpClass = "run"
)

// defaultVersionPattern extracts the first dotted version from tool output.
var defaultVersionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// ToolSpec declares one wrapped external tool.
type ToolSpec struct {
	// Name is the registry key, e.g. "uv".
	Name string
	// Executable is the binary looked up on PATH, or an absolute path.
	Executable string
	// VersionArgs invokes the tool's version output, e.g. ["--version"].
	VersionArgs []string
	// VersionPattern extracts the version from the output. Empty means
	// the default dotted-number pattern.
	VersionPattern string
	// InstallHint tells the user how to get the tool when it is missing.
	InstallHint string
	// Source records where the definition came from: "builtin",
	// "config", or a plugin name.
	Source string
}

// versionRegexp returns the compiled extraction pattern.
func (t ToolSpec) versionRegexp() (*regexp.Regexp, error) {
	if t.VersionPattern == "" {
		return defaultVersionPattern, nil
	}
	re, err := regexp.Compile(t.VersionPattern)
	if err != nil {
		return nil, errs.ConfigWrap(err, "toolchain.versionRegexp", "invalid version pattern").
			WithDetail("tool", t.Name)
	}
	return re, nil
}

// Registry holds the known tool definitions. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]ToolSpec
}

// NewRegistry creates a registry pre-populated with the builtin tools.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]ToolSpec)}
	for _, spec := range builtinTools() {
		r.specs[spec.Name] = spec
	}
	return r
}

// builtinTools is the declarative table of tools dht knows out of the box.
func builtinTools() []ToolSpec {
	return []ToolSpec{
		{Name: "python", Executable: "python3", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "install Python 3 from python.org or your system package manager"},
		{Name: "uv", Executable: "uv", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "curl -LsSf https://astral.sh/uv/install.sh | sh"},
		{Name: "pip", Executable: "pip3", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "python3 -m ensurepip --upgrade"},
		{Name: "poetry", Executable: "poetry", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "pipx install poetry"},
		{Name: "git", Executable: "git", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "install git from git-scm.com or your system package manager"},
		{Name: "docker", Executable: "docker", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "install Docker Desktop or docker-ce"},
		{Name: "act", Executable: "act", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "brew install act (or see nektos/act releases)"},
		{Name: "node", Executable: "node", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "install Node.js from nodejs.org"},
		{Name: "npm", Executable: "npm", VersionArgs: []string{"--version"}, Source: "builtin",
			InstallHint: "ships with Node.js"},
	}
}

// Register adds or replaces a tool definition.
func (r *Registry) Register(spec ToolSpec) error {
	const op = "toolchain.Registry.Register"
	if spec.Name == "" {
		return errs.Validation(op, "tool name must not be empty")
	}
	if spec.Executable == "" {
		return errs.Validation(op, "tool executable must not be empty").WithDetail("tool", spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Name] = spec
	return nil
}

// Lookup returns the definition for a tool name.
func (r *Registry) Lookup(name string) (ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[name]
	if !ok {
		return ToolSpec{}, errs.NotFound("toolchain.Registry.Lookup", "unknown tool").
			WithDetail("tool", name)
	}
	return spec, nil
}

// List returns all definitions sorted by name.
func (r *Registry) List() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
