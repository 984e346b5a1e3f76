package hookctx

import (
	"sort"
	"strings"

	"github.com/fulmenhq/affiance/internal/git"
)

// PostCheckout receives the previous head, the new head and a flag that is
// 1 for branch checkouts and 0 for file checkouts.
type PostCheckout struct {
	*base
}

func (c *PostCheckout) PreviousHead() string { return c.arg(0) }
func (c *PostCheckout) NewHead() string      { return c.arg(1) }
func (c *PostCheckout) BranchCheckout() bool { return c.arg(2) == "1" }
func (c *PostCheckout) FileCheckout() bool   { return !c.BranchCheckout() }

func (c *PostCheckout) diff() git.DiffOptions {
	prev := c.PreviousHead()
	// a fresh clone reports the null sha as previous head
	if prev == "" || prev == nullSHA {
		prev = emptyTree
	}
	return git.DiffOptions{Refs: []string{prev, c.NewHead()}}
}

func (c *PostCheckout) ModifiedFiles() ([]string, error) {
	return c.memoFiles(func() ([]string, error) { return c.repo.ModifiedFiles(c.diff()) })
}

func (c *PostCheckout) ModifiedLinesInFile(path string) ([]int, error) {
	return c.memoLines(path, func(abs string) ([]int, error) { return c.repo.ModifiedLines(abs, c.diff()) })
}

// PostCommit diffs the commit just created against its parent; for the
// first commit every file in it counts as modified.
type PostCommit struct {
	*base
}

// InitialCommit reports whether the new commit has no parent.
func (c *PostCommit) InitialCommit() bool { return c.repo.RevParse("HEAD~") == "" }

func (c *PostCommit) ModifiedFiles() ([]string, error) {
	return c.memoFiles(func() ([]string, error) { return c.repo.ModifiedFiles(showLastCommit) })
}

func (c *PostCommit) ModifiedLinesInFile(path string) ([]int, error) {
	return c.memoLines(path, func(abs string) ([]int, error) { return c.repo.ModifiedLines(abs, showLastCommit) })
}

// PostMerge receives 1 when the merge was a squash. A squash leaves its
// result staged; a real merge is diffed against its first parent.
type PostMerge struct {
	*base
}

func (c *PostMerge) Squash() bool      { return c.arg(0) == "1" }
func (c *PostMerge) MergeCommit() bool { return !c.Squash() }

func (c *PostMerge) diff() git.DiffOptions {
	if c.Squash() {
		return git.DiffOptions{Staged: true}
	}
	return git.DiffOptions{Refs: []string{"HEAD^", "HEAD"}}
}

func (c *PostMerge) ModifiedFiles() ([]string, error) {
	return c.memoFiles(func() ([]string, error) { return c.repo.ModifiedFiles(c.diff()) })
}

func (c *PostMerge) ModifiedLinesInFile(path string) ([]int, error) {
	return c.memoLines(path, func(abs string) ([]int, error) { return c.repo.ModifiedLines(abs, c.diff()) })
}

// RewrittenCommit pairs a commit with its replacement.
type RewrittenCommit struct {
	OldHash string
	NewHash string
}

// PostRewrite runs after `commit --amend` or `rebase`; stdin lists each
// rewritten commit as "<old> <new>".
type PostRewrite struct {
	*base
}

func (c *PostRewrite) Amend() bool  { return c.arg(0) == "amend" }
func (c *PostRewrite) Rebase() bool { return c.arg(0) == "rebase" }

// RewrittenCommits parses stdin.
func (c *PostRewrite) RewrittenCommits() []RewrittenCommit {
	var out []RewrittenCommit
	for _, line := range c.InputLines() {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out = append(out, RewrittenCommit{OldHash: fields[0], NewHash: fields[1]})
	}
	return out
}

// diffs returns the change sets covered: the amended commit against the one
// it replaced, or every rebased commit on its own.
func (c *PostRewrite) diffs() []git.DiffOptions {
	commits := c.RewrittenCommits()
	if c.Amend() && len(commits) > 0 {
		last := commits[len(commits)-1]
		return []git.DiffOptions{{Refs: []string{last.OldHash, last.NewHash}}}
	}
	var out []git.DiffOptions
	for _, rc := range commits {
		out = append(out, git.DiffOptions{Subcommand: "show", Refs: []string{rc.NewHash}})
	}
	return out
}

func (c *PostRewrite) ModifiedFiles() ([]string, error) {
	return c.memoFiles(func() ([]string, error) {
		var all []string
		for _, d := range c.diffs() {
			files, err := c.repo.ModifiedFiles(d)
			if err != nil {
				return nil, err
			}
			all = union(all, files)
		}
		return all, nil
	})
}

func (c *PostRewrite) ModifiedLinesInFile(path string) ([]int, error) {
	return c.memoLines(path, func(abs string) ([]int, error) {
		var all []int
		for _, d := range c.diffs() {
			lines, err := c.repo.ModifiedLines(abs, d)
			if err != nil {
				return nil, err
			}
			all = union(all, lines)
		}
		sort.Ints(all)
		return all, nil
	})
}
