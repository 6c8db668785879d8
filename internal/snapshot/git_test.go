package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/dht-tools/dht/internal/errors"
)

func TestReadGitInfoNotARepository(t *testing.T) {
	_, err := readGitInfo(t.TempDir())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindGit))
}

func TestReadGitInfoEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	info, err := readGitInfo(dir)
	require.NoError(t, err)
	assert.Empty(t, info.Commit)
	assert.Empty(t, info.Branch)
}

func TestReadGitInfoCommittedRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("README.md")
	require.NoError(t, err)

	hash, err := worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	info, err := readGitInfo(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), info.Commit)
	assert.Equal(t, "master", info.Branch)
	assert.False(t, info.Dirty)

	// An untracked file makes the worktree dirty.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("wip"), 0o644))

	info, err = readGitInfo(dir)
	require.NoError(t, err)
	assert.True(t, info.Dirty)
}

func TestReadGitInfoFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	sub := filepath.Join(dir, "pkg", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	_, err = readGitInfo(sub)
	require.NoError(t, err)
}
