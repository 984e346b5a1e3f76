// Package hookctx provides one context per git hook type. A context exposes
// the files (and, where git can tell, the lines) a hook invocation concerns,
// and owns any working tree manipulation needed around hook execution.
package hookctx

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/proc"
	"github.com/fulmenhq/affiance/pkg/config"
)

// nullSHA is what git passes for a ref that does not exist.
const nullSHA = "0000000000000000000000000000000000000000"

// emptyTree is the object id of the empty tree, used to diff against nothing.
const emptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Context is the per-invocation view every hook receives.
type Context interface {
	config.Scope
	Args() []string
	Input() string
	Repo() *git.Repo
	ModifiedFiles() ([]string, error)
	AllFiles() ([]string, error)
	SetupEnvironment(ctx context.Context) error
	CleanupEnvironment(ctx context.Context) error
	// ExecuteHook runs argv followed by the original hook arguments, with the
	// original stdin piped through.
	ExecuteHook(ctx context.Context, argv []string, env []string) (*proc.Result, error)
}

// LineDiffer is implemented by contexts that know which lines changed.
type LineDiffer interface {
	ModifiedLinesInFile(path string) ([]int, error)
}

// As finds the first context in c's wrapper chain implementing T. Wrappers
// expose the context they decorate through Unwrap.
func As[T any](c Context) (T, bool) {
	for c != nil {
		if t, ok := c.(T); ok {
			return t, true
		}
		u, ok := c.(interface{ Unwrap() Context })
		if !ok {
			break
		}
		c = u.Unwrap()
	}
	var zero T
	return zero, false
}

// New builds the context for a hook script or config name.
func New(hookType string, repo *git.Repo, args []string, input string) (Context, error) {
	ht, ok := config.LookupHookType(hookType)
	if !ok {
		return nil, fmt.Errorf("unsupported hook type %q", hookType)
	}
	b := newBase(ht, repo, args, input)
	switch ht.Config {
	case "PreCommit":
		return newPreCommit(b), nil
	case "CommitMsg":
		return newCommitMsg(b), nil
	case "PrepareCommitMsg":
		return newPrepareCommitMsg(b), nil
	case "PostCheckout":
		return &PostCheckout{base: b}, nil
	case "PostCommit":
		return &PostCommit{base: b}, nil
	case "PostMerge":
		return &PostMerge{base: b}, nil
	case "PostRewrite":
		return &PostRewrite{base: b}, nil
	case "PrePush":
		return &PrePush{base: b}, nil
	case "PreRebase":
		return &PreRebase{base: b}, nil
	}
	return nil, fmt.Errorf("unsupported hook type %q", hookType)
}

// base carries what every context shares and supplies no-op environment
// handling.
type base struct {
	hookType config.HookType
	repo     *git.Repo
	args     []string
	input    string

	filesOnce sync.Once
	files     []string
	filesErr  error

	allOnce  sync.Once
	allFiles []string
	allErr   error

	linesMu sync.Mutex
	lines   map[string][]int
}

func newBase(ht config.HookType, repo *git.Repo, args []string, input string) *base {
	return &base{hookType: ht, repo: repo, args: args, input: input, lines: make(map[string][]int)}
}

func (b *base) HookScriptName() string { return b.hookType.Script }
func (b *base) HookConfigName() string { return b.hookType.Config }
func (b *base) Args() []string         { return append([]string(nil), b.args...) }
func (b *base) Input() string          { return b.input }
func (b *base) Repo() *git.Repo        { return b.repo }

// InputLines returns stdin split into non-empty lines.
func (b *base) InputLines() []string {
	var out []string
	for _, line := range strings.Split(b.input, "\n") {
		if line = strings.TrimRight(line, "\r"); strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func (b *base) arg(i int) string {
	if i < len(b.args) {
		return b.args[i]
	}
	return ""
}

func (b *base) ModifiedFiles() ([]string, error) { return nil, nil }

func (b *base) AllFiles() ([]string, error) {
	b.allOnce.Do(func() {
		b.allFiles, b.allErr = b.repo.TrackedFiles()
	})
	return b.allFiles, b.allErr
}

func (b *base) SetupEnvironment(context.Context) error   { return nil }
func (b *base) CleanupEnvironment(context.Context) error { return nil }

func (b *base) ExecuteHook(ctx context.Context, argv []string, env []string) (*proc.Result, error) {
	return proc.Run(ctx, proc.Command{
		Argv:  argv,
		Args:  b.Args(),
		Env:   env,
		Dir:   b.repo.Root(),
		Stdin: b.input,
	})
}

// memoFiles computes the modified file list once, dropping paths that no
// longer exist and directories (submodules).
func (b *base) memoFiles(compute func() ([]string, error)) ([]string, error) {
	b.filesOnce.Do(func() {
		files, err := compute()
		if err != nil {
			b.filesErr = err
			return
		}
		b.files = existingFiles(files)
	})
	return b.files, b.filesErr
}

// memoLines caches per-file line lists.
func (b *base) memoLines(path string, compute func(string) ([]int, error)) ([]int, error) {
	abs := b.repo.Abs(path)
	b.linesMu.Lock()
	defer b.linesMu.Unlock()
	if lines, ok := b.lines[abs]; ok {
		return lines, nil
	}
	lines, err := compute(abs)
	if err != nil {
		return nil, err
	}
	b.lines[abs] = lines
	return lines, nil
}

func existingFiles(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// union merges path or line lists preserving first-seen order.
func union[T comparable](lists ...[]T) []T {
	seen := make(map[T]struct{})
	var out []T
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
