package hookctx

import (
	"sort"
	"strings"
	"sync"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// PushedRef is one line of pre-push input.
type PushedRef struct {
	LocalRef  string
	LocalSHA  string
	RemoteRef string
	RemoteSHA string

	repo       *git.Repo
	remoteName string

	overwrittenOnce sync.Once
	overwritten     []string
	overwrittenErr  error
}

// Created reports a ref that does not exist on the remote yet.
func (r *PushedRef) Created() bool { return r.RemoteSHA == nullSHA }

// Deleted reports a push that removes the remote ref.
func (r *PushedRef) Deleted() bool { return r.LocalSHA == nullSHA }

// Forced reports an update that discards commits on the remote.
func (r *PushedRef) Forced() bool {
	if r.Created() || r.Deleted() {
		return false
	}
	commits, err := r.OverwrittenCommits()
	if err != nil {
		// the remote tip is unknown locally, so the push cannot be a
		// fast-forward of anything we have
		logger.Debug("hookctx: treating push with unknown remote tip as forced", logger.String("ref", r.RemoteRef), logger.Err(err))
		return true
	}
	return len(commits) > 0
}

// Destructive reports a deletion or a forced update.
func (r *PushedRef) Destructive() bool { return r.Deleted() || r.Forced() }

// OverwrittenCommits lists remote commits that are not reachable from the
// local sha.
func (r *PushedRef) OverwrittenCommits() ([]string, error) {
	r.overwrittenOnce.Do(func() {
		r.overwritten, r.overwrittenErr = r.repo.RevList(r.RemoteSHA, "^"+r.LocalSHA)
	})
	return r.overwritten, r.overwrittenErr
}

func (r *PushedRef) diffs() ([]git.DiffOptions, error) {
	switch {
	case r.Deleted():
		return nil, nil
	case r.Created():
		commits, err := r.repo.RevList(r.LocalSHA, "--not", "--remotes="+r.remoteName)
		if err != nil {
			return nil, err
		}
		var out []git.DiffOptions
		for _, c := range commits {
			out = append(out, git.DiffOptions{Subcommand: "show", Refs: []string{c}})
		}
		return out, nil
	default:
		return []git.DiffOptions{{Refs: []string{r.RemoteSHA + ".." + r.LocalSHA}}}, nil
	}
}

// ModifiedFiles returns the files changed by the commits being pushed.
func (r *PushedRef) ModifiedFiles() ([]string, error) {
	diffs, err := r.diffs()
	if err != nil {
		return nil, err
	}
	var all []string
	for _, d := range diffs {
		files, err := r.repo.ModifiedFiles(d)
		if err != nil {
			return nil, err
		}
		all = union(all, files)
	}
	return all, nil
}

// ModifiedLinesInFile returns the lines of file changed by the push.
func (r *PushedRef) ModifiedLinesInFile(path string) ([]int, error) {
	diffs, err := r.diffs()
	if err != nil {
		return nil, err
	}
	var all []int
	for _, d := range diffs {
		lines, err := r.repo.ModifiedLines(path, d)
		if err != nil {
			return nil, err
		}
		all = union(all, lines)
	}
	sort.Ints(all)
	return all, nil
}

// PrePush receives the remote name and url as arguments and one line per
// pushed ref on stdin.
type PrePush struct {
	*base

	refsOnce sync.Once
	refs     []*PushedRef
}

func (c *PrePush) RemoteName() string { return c.arg(0) }
func (c *PrePush) RemoteURL() string  { return c.arg(1) }

// PushedRefs parses stdin.
func (c *PrePush) PushedRefs() []*PushedRef {
	c.refsOnce.Do(func() {
		for _, line := range c.InputLines() {
			f := strings.Fields(line)
			if len(f) != 4 {
				continue
			}
			c.refs = append(c.refs, &PushedRef{
				LocalRef: f[0], LocalSHA: f[1], RemoteRef: f[2], RemoteSHA: f[3],
				repo: c.repo, remoteName: c.RemoteName(),
			})
		}
	})
	return c.refs
}

func (c *PrePush) ModifiedFiles() ([]string, error) {
	return c.memoFiles(func() ([]string, error) {
		var all []string
		for _, ref := range c.PushedRefs() {
			files, err := ref.ModifiedFiles()
			if err != nil {
				return nil, err
			}
			all = union(all, files)
		}
		return all, nil
	})
}

func (c *PrePush) ModifiedLinesInFile(path string) ([]int, error) {
	return c.memoLines(path, func(abs string) ([]int, error) {
		var all []int
		for _, ref := range c.PushedRefs() {
			lines, err := ref.ModifiedLinesInFile(abs)
			if err != nil {
				return nil, err
			}
			all = union(all, lines)
		}
		sort.Ints(all)
		return all, nil
	})
}

// PreRebase receives the upstream and, unless rebasing the current branch,
// the branch being rebased.
type PreRebase struct {
	*base

	commitsOnce sync.Once
	commits     []string
	commitsErr  error
}

func (c *PreRebase) UpstreamBranch() string { return c.arg(0) }

// RebasedBranch returns the branch being rebased, "" for a detached HEAD.
func (c *PreRebase) RebasedBranch() string {
	if b := c.arg(1); b != "" {
		return b
	}
	return c.repo.CurrentBranch()
}

func (c *PreRebase) DetachedHead() bool { return c.RebasedBranch() == "" }

// RebasedCommits lists the commits the rebase would replay, oldest first.
func (c *PreRebase) RebasedCommits() ([]string, error) {
	c.commitsOnce.Do(func() {
		ref := c.RebasedBranch()
		if ref == "" {
			ref = "HEAD"
		}
		c.commits, c.commitsErr = c.repo.RevList("--topo-order", "--reverse", c.UpstreamBranch()+".."+ref)
	})
	return c.commits, c.commitsErr
}

// FastForward reports a rebase that replays nothing.
func (c *PreRebase) FastForward() (bool, error) {
	commits, err := c.RebasedCommits()
	return len(commits) == 0, err
}
