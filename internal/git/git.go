// Package git is the engine's only gateway to the git binary and the
// repository's on-disk state: running subcommands, the local config store,
// diff queries, the tracked-file list and the transient files under the git
// directory (MERGE_HEAD and friends).
package git

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/internal/proc"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// Result is the outcome of a git subprocess.
type Result = proc.Result

// Repo is a handle on a working tree and its git directory.
type Repo struct {
	root   string
	gitDir string
}

// Open locates the repository containing dir. go-git handles discovery
// (including .git files of linked worktrees); the absolute git directory comes
// from the CLI because hooks of linked worktrees must write state there.
func Open(dir string) (*Repo, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("%w: git executable not found", hookerr.ErrInvalidGitRepo)
	}

	root := ""
	if repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true, EnableDotGitCommonDir: true}); err == nil {
		if wt, wtErr := repo.Worktree(); wtErr == nil {
			root = wt.Filesystem.Root()
		}
	}
	if root == "" {
		out, err := output(dir, "rev-parse", "--show-toplevel")
		if err != nil {
			return nil, fmt.Errorf("%w: %s", hookerr.ErrInvalidGitRepo, dir)
		}
		root = out
	}

	gitDir, err := output(root, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("%w: unable to resolve git directory for %s", hookerr.ErrInvalidGitRepo, root)
	}

	logger.Debug("git: opened repository", logger.String("root", root), logger.String("git_dir", gitDir))
	return &Repo{root: filepath.Clean(root), gitDir: filepath.Clean(gitDir)}, nil
}

// Root returns the absolute path of the working tree.
func (r *Repo) Root() string { return r.root }

// GitDir returns the absolute path of the git directory.
func (r *Repo) GitDir() string { return r.gitDir }

// Abs resolves a repository-relative path against the root.
func (r *Repo) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.root, filepath.FromSlash(path))
}

// Rel returns path relative to the root using forward slashes.
func (r *Repo) Rel(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Exec runs a git subcommand from the repository root. A non-zero exit is
// reported through Result, not as an error; the error is reserved for git not
// being startable at all.
func (r *Repo) Exec(args ...string) (*Result, error) {
	return execIn(r.root, args...)
}

// Output runs a git subcommand and returns trimmed stdout, failing on a
// non-zero exit with git's stderr in the error.
func (r *Repo) Output(args ...string) (string, error) {
	return output(r.root, args...)
}

func execIn(dir string, args ...string) (*Result, error) {
	res, err := proc.Run(context.Background(), proc.Command{Argv: append([]string{"git"}, args...), Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return res, nil
}

func output(dir string, args ...string) (string, error) {
	res, err := execIn(dir, args...)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", fmt.Errorf("git %s: exit %d: %s", strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}

// InitialCommit reports whether HEAD does not resolve yet.
func (r *Repo) InitialCommit() bool {
	res, err := r.Exec("rev-parse", "--verify", "--quiet", "HEAD")
	return err != nil || !res.Success()
}

// HasUncommittedChanges reports staged or unstaged modifications to tracked
// files. Untracked files are deliberately not considered.
func (r *Repo) HasUncommittedChanges() (bool, error) {
	res, err := r.Exec("status", "-z", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	if !res.Success() {
		return false, fmt.Errorf("git status: %s", strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout) != "", nil
}

// RevParse resolves a ref, returning "" when it does not exist.
func (r *Repo) RevParse(ref string) string {
	res, err := r.Exec("rev-parse", "--verify", "--quiet", ref)
	if err != nil || !res.Success() {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// RevList returns the commits selected by a rev-list argument set.
func (r *Repo) RevList(args ...string) ([]string, error) {
	out, err := r.Output(append([]string{"rev-list"}, args...)...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// CurrentBranch returns the checked-out branch, or "" for a detached HEAD.
func (r *Repo) CurrentBranch() string {
	res, err := r.Exec("symbolic-ref", "--short", "-q", "HEAD")
	if err != nil || !res.Success() {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitNul(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "\x00") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
