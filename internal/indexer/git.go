package indexer

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitInfo contains git repository information.
type GitInfo struct {
	IsGit   bool
	GitRoot string
	Branch  string
}

// DetectGit reports whether root is inside a git work tree and which
// branch is checked out. It falls back to non-git mode when git is
// missing.
func DetectGit(ctx context.Context, root string) GitInfo {
	top, err := git(ctx, root, "rev-parse", "--show-toplevel")
	if err != nil {
		return GitInfo{}
	}
	info := GitInfo{IsGit: true, GitRoot: top}
	if branch, err := git(ctx, root, "rev-parse", "--abbrev-ref", "HEAD"); err == nil && branch != "HEAD" {
		info.Branch = branch
	}
	return info
}

// RepoRef names a local repository for logs and analytics, e.g.
// "local//home/me/src/app".
func RepoRef(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return "local/" + filepath.ToSlash(abs)
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
