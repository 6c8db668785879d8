package snapshot

import (
	"fmt"
	"sort"
	"strings"
)

// Change is one difference between two snapshots. Before and After hold
// human-readable renderings; either may be empty when a side is absent.
type Change struct {
	Path   string `yaml:"path" json:"path"`
	Before string `yaml:"before,omitempty" json:"before,omitempty"`
	After  string `yaml:"after,omitempty" json:"after,omitempty"`
}

// String renders the change as "path: before -> after".
func (c Change) String() string {
	before := c.Before
	if before == "" {
		before = "<absent>"
	}
	after := c.After
	if after == "" {
		after = "<absent>"
	}
	return fmt.Sprintf("%s: %s -> %s", c.Path, before, after)
}

// DiffReport lists the differences between two snapshots.
type DiffReport struct {
	Changes []Change `yaml:"changes" json:"changes"`
}

// Empty returns true when the snapshots match.
func (r *DiffReport) Empty() bool {
	return len(r.Changes) == 0
}

// String renders the report one change per line.
func (r *DiffReport) String() string {
	if r.Empty() {
		return "environments match"
	}
	lines := make([]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

// Diff compares two snapshots. Identity fields (ID, timestamp, hostname)
// are ignored: two captures of the same environment diff as empty.
func Diff(before, after *Snapshot) *DiffReport {
	report := &DiffReport{}

	report.compare("platform.os", before.Platform.OS, after.Platform.OS)
	report.compare("platform.arch", before.Platform.Arch, after.Platform.Arch)

	report.diffProject(before, after)
	report.diffTools(before, after)
	report.diffGit(before, after)
	report.diffEnv(before, after)

	return report
}

func (r *DiffReport) compare(path, before, after string) {
	if before != after {
		r.Changes = append(r.Changes, Change{Path: path, Before: before, After: after})
	}
}

func (r *DiffReport) diffProject(before, after *Snapshot) {
	var b, a string
	if before.Project != nil {
		b = before.Project.Summary()
	}
	if after.Project != nil {
		a = after.Project.Summary()
	}
	r.compare("project", b, a)
}

func (r *DiffReport) diffTools(before, after *Snapshot) {
	renderTool := func(s *Snapshot, name string) string {
		for _, t := range s.Tools {
			if t.Name != name {
				continue
			}
			if !t.Present {
				return "missing"
			}
			if t.Version != nil {
				return t.Version.String()
			}
			return "present"
		}
		return ""
	}

	for _, name := range toolNames(before, after) {
		r.compare("tools."+name, renderTool(before, name), renderTool(after, name))
	}
}

func (r *DiffReport) diffGit(before, after *Snapshot) {
	render := func(g *GitInfo) (branch, commit, dirty string) {
		if g == nil {
			return "", "", ""
		}
		return g.Branch, g.Commit, fmt.Sprintf("%t", g.Dirty)
	}

	bBranch, bCommit, bDirty := render(before.Git)
	aBranch, aCommit, aDirty := render(after.Git)

	r.compare("git.branch", bBranch, aBranch)
	r.compare("git.commit", bCommit, aCommit)
	r.compare("git.dirty", bDirty, aDirty)
}

func (r *DiffReport) diffEnv(before, after *Snapshot) {
	keys := make(map[string]bool, len(before.Env)+len(after.Env))
	for k := range before.Env {
		keys[k] = true
	}
	for k := range after.Env {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		r.compare("env."+k, before.Env[k], after.Env[k])
	}
}

// toolNames returns the union of tool names across both snapshots, sorted.
func toolNames(before, after *Snapshot) []string {
	seen := make(map[string]bool)
	for _, t := range before.Tools {
		seen[t.Name] = true
	}
	for _, t := range after.Tools {
		seen[t.Name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
