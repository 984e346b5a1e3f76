// Package gittest builds throwaway repositories with the real git binary for
// tests that exercise working-tree state.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// RequireGit skips the test when git is not installed.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available, skipping integration test")
	}
}

// NewRepo initializes an empty repository on branch main and returns its
// symlink-resolved root.
func NewRepo(t testing.TB) string {
	t.Helper()
	RequireGit(t)

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("failed to resolve temp dir: %v", err)
	}
	Git(t, dir, "init", "-q", "-b", "main")
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "user.name", "Test User")
	Git(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

// NewRepoWithCommit initializes a repository holding one committed README.
func NewRepoWithCommit(t testing.TB) string {
	t.Helper()
	dir := NewRepo(t)
	WriteFile(t, dir, "README.md", "# test\n")
	Git(t, dir, "add", "README.md")
	Git(t, dir, "commit", "-q", "-m", "Initial commit")
	return dir
}

// Git runs a git command in dir and returns trimmed stdout, failing the test
// on a non-zero exit.
func Git(t testing.TB, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true", "GIT_MERGE_AUTOEDIT=no")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// GitMayFail runs a git command and reports whether it succeeded.
func GitMayFail(t testing.TB, dir string, args ...string) bool {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true", "GIT_MERGE_AUTOEDIT=no")
	return cmd.Run() == nil
}

// WriteFile writes a repository-relative file, creating parent directories.
func WriteFile(t testing.TB, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// ReadFile returns a repository-relative file's contents.
func ReadFile(t testing.TB, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", rel, err)
	}
	return string(data)
}

// Backdate sets a file's mtime into the past so a later restore is observable.
func Backdate(t testing.TB, dir, rel string) time.Time {
	t.Helper()
	when := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	if err := os.Chtimes(filepath.Join(dir, filepath.FromSlash(rel)), when, when); err != nil {
		t.Fatalf("failed to backdate %s: %v", rel, err)
	}
	return when
}

// ModTime returns a repository-relative file's modification time.
func ModTime(t testing.TB, dir, rel string) time.Time {
	t.Helper()
	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to stat %s: %v", rel, err)
	}
	return info.ModTime()
}
