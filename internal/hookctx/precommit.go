package hookctx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// PreCommit hides unstaged changes while hooks run so they inspect exactly
// what is about to be committed, then puts the working tree back.
//
// Setup records modification times and any in-progress merge or cherry-pick,
// then stashes everything except the index. Cleanup resets the tree, pops the
// stash with --index and restores the recorded state. Modification times are
// restored after every step that touches files.
type PreCommit struct {
	*stagedChanges

	mtimes         map[string]time.Time
	mergeHead      *string
	mergeMode      *string
	mergeMsg       *string
	cherryPickHead *string

	stashAttempted bool
	changesStashed bool
	// setUp is set once SetupEnvironment has completed.
	setUp bool
}

func newPreCommit(b *base) *PreCommit {
	return &PreCommit{stagedChanges: newStagedChanges(b)}
}

func (c *PreCommit) SetupEnvironment(ctx context.Context) error {
	if err := c.storeModifiedTimes(); err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "record modification times", Err: err}
	}
	if err := c.storeMergeState(); err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "record merge state", Err: err}
	}
	if err := c.storeCherryPickState(); err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "record cherry-pick state", Err: err}
	}

	if !c.repo.InitialCommit() {
		dirty, err := c.repo.HasUncommittedChanges()
		if err != nil {
			return &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "inspect working tree", Err: err}
		}
		if dirty {
			if err := c.stash(ctx); err != nil {
				return err
			}
		}
	}

	c.restoreModifiedTimes()
	c.setUp = true
	return nil
}

// stashTop returns the newest stash entry.
var stashTop = func(repo *git.Repo) (string, error) {
	return repo.Output("stash", "list", "-1")
}

func (c *PreCommit) stash(context.Context) error {
	tag := fmt.Sprintf("affiance: stash of repo state before hook run (%s)", uuid.NewString())
	res, err := c.repo.Exec("-c", "commit.gpgsign=false", "stash", "push", "--keep-index", "--quiet", "-m", tag)
	if err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "stash changes", Err: err}
	}
	if !res.Success() {
		return &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "stash changes", Output: res.Combined()}
	}
	c.stashAttempted = true

	top, err := stashTop(c.repo)
	if err != nil {
		// the push succeeded on a dirty tree, so cleanup has a stash to pop
		c.changesStashed = true
		return &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "verify stash", Err: err}
	}
	c.changesStashed = strings.Contains(top, tag)
	logger.Debug("hookctx: stashed unstaged changes", logger.Bool("stashed", c.changesStashed))
	return nil
}

// CleanupEnvironment is a no-op when setup failed before anything was
// stashed, so a failed setup never discards unstaged work.
func (c *PreCommit) CleanupEnvironment(context.Context) error {
	if !c.setUp && !c.changesStashed {
		return nil
	}
	if !c.repo.InitialCommit() && !(c.stashAttempted && !c.changesStashed) {
		if err := c.clearWorkingTree(); err != nil {
			return err
		}
		c.restoreModifiedTimes()
	}

	if c.changesStashed {
		res, err := c.repo.Exec("stash", "pop", "--index", "--quiet")
		if err != nil {
			return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "restore stashed changes", Err: err}
		}
		if !res.Success() {
			return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "restore stashed changes", Output: res.Combined()}
		}
		c.changesStashed = false
		c.restoreModifiedTimes()
	}

	if err := c.restoreMergeState(); err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "restore merge state", Err: err}
	}
	if err := c.restoreCherryPickState(); err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "restore cherry-pick state", Err: err}
	}
	c.restoreModifiedTimes()
	return nil
}

// clearWorkingTree discards anything hooks wrote. A hard reset leaves the
// directories of submodules whose removal is staged behind; they are removed.
func (c *PreCommit) clearWorkingTree() error {
	removed, err := c.repo.StagedSubmoduleRemovals()
	if err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "list removed submodules", Err: err}
	}
	res, err := c.repo.Exec("reset", "--hard", "--quiet")
	if err != nil {
		return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "reset working tree", Err: err}
	}
	if !res.Success() {
		return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "reset working tree", Output: res.Combined()}
	}
	for _, dir := range removed {
		if err := os.RemoveAll(dir); err != nil {
			return &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "remove submodule directory " + dir, Err: err}
		}
	}
	return nil
}

// storeModifiedTimes records mtimes of every staged or unstaged file that
// still exists. Broken symlinks are skipped.
func (c *PreCommit) storeModifiedTimes() error {
	staged, err := c.repo.StagedFiles()
	if err != nil {
		return err
	}
	unstaged, err := c.repo.UnstagedFiles()
	if err != nil {
		return err
	}
	c.mtimes = make(map[string]time.Time)
	for _, f := range union(staged, unstaged) {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		c.mtimes[f] = info.ModTime()
	}
	return nil
}

func (c *PreCommit) restoreModifiedTimes() {
	for f, mtime := range c.mtimes {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := os.Chtimes(f, mtime, mtime); err != nil {
			logger.Debug("hookctx: unable to restore modification time", logger.String("file", f), logger.Err(err))
		}
	}
}

func (c *PreCommit) storeMergeState() error {
	state := c.repo.State()
	var err error
	if c.mergeHead, err = readState(state, git.MergeHead); err != nil {
		return err
	}
	if c.mergeMode, err = readState(state, git.MergeMode); err != nil {
		return err
	}
	c.mergeMsg, err = readState(state, git.MergeMsg)
	return err
}

func (c *PreCommit) storeCherryPickState() error {
	var err error
	c.cherryPickHead, err = readState(c.repo.State(), git.CherryPickHead)
	return err
}

func (c *PreCommit) restoreMergeState() error {
	state := c.repo.State()
	if c.mergeHead != nil {
		mode := ""
		if c.mergeMode != nil {
			mode = *c.mergeMode
		}
		if err := errors.Join(state.Write(git.MergeMode, mode), state.Write(git.MergeHead, *c.mergeHead)); err != nil {
			return err
		}
		logger.Debug("hookctx: restored merge state")
		c.mergeHead, c.mergeMode = nil, nil
	}
	if c.mergeMsg != nil {
		if err := state.Write(git.MergeMsg, *c.mergeMsg); err != nil {
			return err
		}
		c.mergeMsg = nil
	}
	return nil
}

func (c *PreCommit) restoreCherryPickState() error {
	if c.cherryPickHead == nil {
		return nil
	}
	if err := c.repo.State().Write(git.CherryPickHead, *c.cherryPickHead); err != nil {
		return err
	}
	logger.Debug("hookctx: restored cherry-pick state")
	c.cherryPickHead = nil
	return nil
}

func readState(state *git.StateFiles, name string) (*string, error) {
	content, ok, err := state.Read(name)
	if err != nil || !ok {
		return nil, err
	}
	return &content, nil
}
