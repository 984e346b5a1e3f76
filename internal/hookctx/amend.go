package hookctx

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/pkg/logger"
)

var (
	amendPattern  = `commit(\s.*)?\s--amend(\s|$)`
	amendCommand  = regexp.MustCompile(`\s` + amendPattern)
	amendAliasVal = regexp.MustCompile(amendPattern)
)

// parentCommand returns the command line of the git process that invoked
// the hook. Hook scripts usually exec us, making git the direct parent; when
// they do not, the grandparent is consulted.
var parentCommand = func() string {
	pid := os.Getppid()
	for range 2 {
		cmd := processCommand(pid)
		if strings.Contains(cmd, "git") || pid <= 1 {
			return cmd
		}
		pid = parentPID(pid)
	}
	return ""
}

func processCommand(pid int) string {
	if data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid)); err == nil {
		return strings.TrimSpace(string(bytes.ReplaceAll(data, []byte{0}, []byte{' '})))
	}
	// #nosec G204 -- pid is an integer from the process table
	out, err := exec.Command("ps", "-ocommand=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func parentPID(pid int) int {
	if data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid)); err == nil {
		// the command name is parenthesized and may contain spaces
		if i := bytes.LastIndexByte(data, ')'); i >= 0 {
			fields := strings.Fields(string(data[i+1:]))
			if len(fields) > 1 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					return n
				}
			}
		}
	}
	// #nosec G204 -- pid is an integer from the process table
	out, err := exec.Command("ps", "-oppid=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(string(out)))
	return n
}

// stagedChanges implements modified files and lines for contexts that run
// while a commit is being created: the staged changes, plus the changes of
// the commit being amended.
type stagedChanges struct {
	*base
	amendOnce sync.Once
	amend     bool
}

func newStagedChanges(b *base) *stagedChanges { return &stagedChanges{base: b} }

// Amendment reports whether the commit being created amends HEAD.
func (s *stagedChanges) Amendment() bool {
	s.amendOnce.Do(func() {
		s.amend = detectAmendment(s.repo, parentCommand())
	})
	return s.amend
}

func detectAmendment(repo *git.Repo, cmd string) bool {
	if cmd == "" {
		return false
	}
	cmd = " " + strings.ToValidUTF8(cmd, "?")
	if amendCommand.MatchString(cmd) {
		return true
	}
	aliases, err := repo.ConfigGetRegexp(`^alias\.`)
	if err != nil {
		logger.Debug("hookctx: unable to read git aliases", logger.Err(err))
		return false
	}
	for key, value := range aliases {
		if !amendAliasVal.MatchString(value) {
			continue
		}
		alias := regexp.QuoteMeta(strings.TrimPrefix(key, "alias."))
		if regexp.MustCompile(`git(\.exe)?\s+` + alias + `(\s|$)`).MatchString(cmd) {
			return true
		}
	}
	return false
}

var showLastCommit = git.DiffOptions{Subcommand: "show", Refs: []string{"HEAD"}}

func (s *stagedChanges) ModifiedFiles() ([]string, error) {
	return s.memoFiles(func() ([]string, error) {
		staged, err := s.repo.ModifiedFiles(git.DiffOptions{Staged: true})
		if err != nil {
			return nil, err
		}
		if !s.Amendment() {
			return staged, nil
		}
		previous, err := s.repo.ModifiedFiles(showLastCommit)
		if err != nil {
			return nil, err
		}
		return union(staged, previous), nil
	})
}

func (s *stagedChanges) ModifiedLinesInFile(path string) ([]int, error) {
	return s.memoLines(path, func(abs string) ([]int, error) {
		lines, err := s.repo.ModifiedLines(abs, git.DiffOptions{Staged: true})
		if err != nil {
			return nil, err
		}
		if s.Amendment() {
			previous, err := s.repo.ModifiedLines(abs, showLastCommit)
			if err != nil {
				return nil, err
			}
			lines = union(lines, previous)
			sort.Ints(lines)
		}
		return lines, nil
	})
}
