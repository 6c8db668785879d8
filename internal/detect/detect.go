// Package detect inspects a project directory and classifies what kind of
// environments it needs: which Python packaging flavor, whether the project
// is polyglot, which lockfiles pin it.
package detect

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	errs "github.com/dht-tools/dht/internal/errors"
	"github.com/dht-tools/dht/internal/fileutil"
)

// maxManifestBytes caps manifest reads; a pyproject.toml measured in
// megabytes is not a manifest.
const maxManifestBytes = 1 << 20

// ProjectType classifies one environment flavor found in a project.
type ProjectType string

const (
	// TypePythonUV is a Python project managed by uv.
	TypePythonUV ProjectType = "python-uv"
	// TypePythonPoetry is a Python project managed by poetry.
	TypePythonPoetry ProjectType = "python-poetry"
	// TypePythonSetuptools is a pyproject with a setuptools backend.
	TypePythonSetuptools ProjectType = "python-setuptools"
	// TypePythonRequirements is a bare requirements.txt project.
	TypePythonRequirements ProjectType = "python-requirements"
	// TypeNode is a Node.js project.
	TypeNode ProjectType = "node"
	// TypeDocker is a project with a container build.
	TypeDocker ProjectType = "docker"
	// TypeGithubActions is a project with CI workflows runnable via act.
	TypeGithubActions ProjectType = "github-actions"
)

// Detection is the result of classifying one project root.
type Detection struct {
	Root string `json:"root" yaml:"root"`
	// Types lists every flavor found, most specific first.
	Types []ProjectType `json:"types" yaml:"types"`
	// ProjectName is the declared package name, when a manifest has one.
	ProjectName string `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	// PythonRequires is the declared interpreter constraint.
	PythonRequires string `json:"python_requires,omitempty" yaml:"python_requires,omitempty"`
	// Lockfiles lists the pinning files present at the root.
	Lockfiles []string `json:"lockfiles,omitempty" yaml:"lockfiles,omitempty"`
}

// Summary renders the detection on one line, e.g.
// "python-uv,github-actions (myproj)".
func (d *Detection) Summary() string {
	if len(d.Types) == 0 {
		return "unknown"
	}
	parts := make([]string, len(d.Types))
	for i, t := range d.Types {
		parts[i] = string(t)
	}
	s := strings.Join(parts, ",")
	if d.ProjectName != "" {
		s += " (" + d.ProjectName + ")"
	}
	return s
}

// HasType reports whether the detection includes the given flavor.
func (d *Detection) HasType(t ProjectType) bool {
	for _, got := range d.Types {
		if got == t {
			return true
		}
	}
	return false
}

// pyproject is the subset of pyproject.toml that detection reads.
type pyproject struct {
	Project struct {
		Name           string `toml:"name"`
		RequiresPython string `toml:"requires-python"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
		UV map[string]any `toml:"uv"`
	} `toml:"tool"`
	BuildSystem struct {
		BuildBackend string `toml:"build-backend"`
	} `toml:"build-system"`
}

// Detect classifies the project at root.
func Detect(root string) (*Detection, error) {
	const op = "detect.Detect"

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errs.Detect(op, "project root does not exist").WithDetail("root", root)
	}

	d := &Detection{Root: root}

	if exists(root, "pyproject.toml") {
		if err := d.classifyPyproject(filepath.Join(root, "pyproject.toml")); err != nil {
			return nil, err
		}
	} else if exists(root, "requirements.txt") {
		d.Types = append(d.Types, TypePythonRequirements)
	}

	if exists(root, "package.json") {
		d.Types = append(d.Types, TypeNode)
	}
	if exists(root, "Dockerfile") {
		d.Types = append(d.Types, TypeDocker)
	}
	if hasWorkflows(root) {
		d.Types = append(d.Types, TypeGithubActions)
	}

	for _, lock := range []string{"uv.lock", "poetry.lock", "requirements.lock", "package-lock.json"} {
		if exists(root, lock) {
			d.Lockfiles = append(d.Lockfiles, lock)
		}
	}

	return d, nil
}

// classifyPyproject reads the manifest and picks the Python flavor.
// Priority: an explicit uv section or uv.lock wins, then poetry, then the
// declared build backend.
func (d *Detection) classifyPyproject(path string) error {
	const op = "detect.classifyPyproject"

	data, err := fileutil.ReadFileLimited(path, maxManifestBytes)
	if err != nil {
		return errs.IOWrap(err, op, "cannot read pyproject.toml")
	}

	var manifest pyproject
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return errs.Wrap(err, errs.KindDetect, op, "malformed pyproject.toml").
			WithDetail("path", path)
	}

	d.ProjectName = manifest.Project.Name
	if d.ProjectName == "" {
		d.ProjectName = manifest.Tool.Poetry.Name
	}
	d.PythonRequires = manifest.Project.RequiresPython

	backend := manifest.BuildSystem.BuildBackend
	switch {
	case len(manifest.Tool.UV) > 0 || exists(filepath.Dir(path), "uv.lock"):
		d.Types = append(d.Types, TypePythonUV)
	case strings.HasPrefix(backend, "poetry") || manifest.Tool.Poetry.Name != "" ||
		exists(filepath.Dir(path), "poetry.lock"):
		d.Types = append(d.Types, TypePythonPoetry)
	default:
		d.Types = append(d.Types, TypePythonSetuptools)
	}
	return nil
}

func exists(root string, name string) bool {
	_, err := os.Stat(filepath.Join(root, name))
	return err == nil
}

// hasWorkflows reports whether .github/workflows holds at least one
// workflow file.
func hasWorkflows(root string) bool {
	entries, err := os.ReadDir(filepath.Join(root, ".github", "workflows"))
	if err != nil {
		return false
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
			return true
		}
	}
	return false
}
