// Package integration provides integration test utilities and fixtures.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

// RequireUnix skips tests that drive real unix commands.
func RequireUnix(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test drives unix commands")
	}
}

// TestProject represents a temporary project directory for testing.
type TestProject struct {
	t   testing.TB
	Dir string
}

// NewTestProject creates a temporary project directory. It is cleaned up
// when the test completes.
func NewTestProject(t testing.TB) *TestProject {
	t.Helper()
	return &TestProject{t: t, Dir: t.TempDir()}
}

// WriteFile writes a file into the project, creating parent directories.
func (p *TestProject) WriteFile(path, content string) {
	p.t.Helper()
	fullPath := filepath.Join(p.Dir, path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil { // #nosec G301 -- test fixture
		p.t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil { // #nosec G306 -- test fixture
		p.t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// GitInit turns the project into a git repository with one commit.
func (p *TestProject) GitInit() {
	p.t.Helper()
	p.git("init", "--initial-branch=main")
	p.git("config", "user.email", "test@example.com")
	p.git("config", "user.name", "Test User")
	p.git("config", "commit.gpgsign", "false")
	p.git("add", "-A")
	p.git("commit", "-m", "initial commit")
}

func (p *TestProject) git(args ...string) {
	p.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = p.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		p.t.Fatalf("git %v failed: %v\nOutput: %s", args, err, string(output))
	}
}
