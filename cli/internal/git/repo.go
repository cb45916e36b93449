// Package git provides repository discovery for config lookup.
package git

import (
	"os/exec"
	"path/filepath"
	"strings"

	"rcommit/cli/internal/erruser"
)

// RepoRoot returns the absolute path of the git repository root containing
// dir. Runs "git rev-parse --show-toplevel" with Dir=dir. Returns a
// vcs-unavailable error if dir is not inside a git repository.
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New(erruser.KindVcsUnavailable, "This directory is not inside a Git repository.", err)
	}
	root := strings.TrimSpace(string(out))
	return filepath.Abs(root)
}
