// Package diff collects the staged change set: it runs git diff against the
// index, parses the unified diff into per-file records, and applies the
// caller's path exclusions.
//
// # .gitignore
// Only tracked, staged files are included. Ignored files are out of scope;
// git diff does not report them.
//
// # Binary files
// Binary files are excluded; no records are produced for them. Git reports
// "Binary files ... differ" and does not emit unified diff content.
//
// # Empty diff
// When nothing is staged (or everything staged is excluded), Collect fails
// with a no-changes error; the caller must not proceed to generation.
package diff

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"rcommit/cli/internal/erruser"
)

// FileDiff is one per-file change record: the path (HEAD side, relative to
// the repo root) and the raw unified hunk text for that file.
type FileDiff struct {
	Path     string
	HunkText string
}

// Collect runs git diff for the staged changes in dir, parses the output,
// and drops records whose path is excluded. Exclusions match exactly or as a
// directory prefix ("docs" excludes "docs/x.md"). Context is used for
// cancellation when running git.
//
// Fails with a no-changes error when the filtered set is empty and a
// vcs-unavailable error when git cannot be invoked or exits non-zero.
func Collect(ctx context.Context, dir string, exclusions []string) ([]FileDiff, error) {
	out, err := runGitDiff(ctx, dir)
	if err != nil {
		return nil, erruser.New(erruser.KindVcsUnavailable,
			"Could not read staged changes; is this a Git repository?", err)
	}

	files, err := ParseUnifiedDiff(out)
	if err != nil {
		return nil, erruser.New(erruser.KindVcsUnavailable, "Could not parse git diff output.", err)
	}

	filtered := Filter(files, exclusions)
	if len(filtered) == 0 {
		return nil, erruser.New(erruser.KindNoChanges,
			"No staged changes to summarize; stage files with git add first.", nil)
	}
	return filtered, nil
}

func runGitDiff(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--no-color", "--no-ext-diff", "--diff-filter=ACM")
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = minimalEnv()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git diff --cached: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func minimalEnv() []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
	}
}

// Filter returns the records whose Path is not excluded. A record is
// excluded when its path equals an exclusion or lives under an exclusion
// treated as a directory. Paths are normalized to forward slashes before
// matching; trailing slashes on exclusions are ignored.
func Filter(files []FileDiff, exclusions []string) []FileDiff {
	if len(exclusions) == 0 {
		return files
	}
	norm := make([]string, 0, len(exclusions))
	for _, e := range exclusions {
		e = strings.TrimSuffix(filepath.ToSlash(strings.TrimSpace(e)), "/")
		if e != "" {
			norm = append(norm, e)
		}
	}
	out := make([]FileDiff, 0, len(files))
	for _, f := range files {
		path := filepath.ToSlash(f.Path)
		excluded := false
		for _, e := range norm {
			if path == e || strings.HasPrefix(path, e+"/") {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, f)
		}
	}
	return out
}
