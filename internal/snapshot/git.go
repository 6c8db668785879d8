package snapshot

import (
	git "github.com/go-git/go-git/v5"

	errs "github.com/dht-tools/dht/internal/errors"
)

// readGitInfo reads branch, HEAD commit, and worktree cleanliness for the
// repository containing dir. Returns a git error when dir is not inside a
// repository.
func readGitInfo(dir string) (*GitInfo, error) {
	const op = "snapshot.readGitInfo"

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errs.GitWrap(err, op, "failed to open repository")
	}

	info := &GitInfo{}

	head, err := repo.Head()
	if err != nil {
		// An empty repository has no HEAD yet; record it as-is.
		return info, nil
	}
	info.Commit = head.Hash().String()
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, errs.GitWrap(err, op, "failed to get worktree")
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, errs.GitWrap(err, op, "failed to get worktree status")
	}
	info.Dirty = !status.IsClean()

	return info, nil
}
