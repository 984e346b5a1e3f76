// Package hook implements the behavior shared by every hook: requirement
// checks, file applicability, environment resolution, result normalization
// and the message processor.
package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/affiance/internal/assets"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/internal/proc"
	"github.com/fulmenhq/affiance/pkg/config"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// Kind tells where a hook's behavior comes from.
type Kind int

const (
	KindBuiltIn Kind = iota
	KindPlugin
	KindAdHoc
)

func (k Kind) String() string {
	switch k {
	case KindBuiltIn:
		return "built-in"
	case KindPlugin:
		return "plugin"
	case KindAdHoc:
		return "ad-hoc"
	}
	return "unknown"
}

// Check is the hook-specific part of a hook.
type Check interface {
	Run(ctx context.Context, h *Hook) (Result, error)
}

// CheckFunc adapts a function to Check.
type CheckFunc func(ctx context.Context, h *Hook) (Result, error)

func (f CheckFunc) Run(ctx context.Context, h *Hook) (Result, error) { return f(ctx, h) }

// Hook is one configured check bound to a hook context.
type Hook struct {
	name  string
	kind  Kind
	opts  config.Options
	hctx  hookctx.Context
	check Check

	// extraEnv is appended after the configured environment.
	extraEnv []string

	lookPath func(string) (string, error)

	filesOnce sync.Once
	files     []string
	filesErr  error
}

// New binds check to a hook context with its effective options.
func New(name string, kind Kind, opts config.Options, hctx hookctx.Context, check Check) *Hook {
	if opts == nil {
		opts = config.Options{}
	}
	return &Hook{name: name, kind: kind, opts: opts, hctx: hctx, check: check, lookPath: exec.LookPath}
}

func (h *Hook) Name() string                { return h.name }
func (h *Hook) Kind() Kind                  { return h.kind }
func (h *Hook) Options() config.Options     { return h.opts }
func (h *Hook) Context() hookctx.Context    { return h.hctx }
func (h *Hook) Check() Check                { return h.check }
func (h *Hook) Enabled() bool               { return h.opts.Bool("enabled") }
func (h *Hook) Required() bool              { return h.opts.Bool("required") }
func (h *Hook) Quiet() bool                 { return h.opts.Bool("quiet") }
func (h *Hook) Skip() bool                  { return h.opts.Bool("skip") }
func (h *Hook) Flags() ([]string, error)    { return h.opts.Argv("flags") }
func (h *Hook) RequiredExecutable() string  { return h.opts.String("requiredExecutable") }
func (h *Hook) RequiredLibraries() []string { return h.opts.StringList("requiredLibrary") }

// Description is the configured description or "Run <name>".
func (h *Hook) Description() string {
	if d := h.opts.String("description"); d != "" {
		return d
	}
	return "Run " + h.name
}

// Command returns the configured command, falling back to the required
// executable, followed by the configured flags.
func (h *Hook) Command() ([]string, error) {
	argv, err := h.opts.Argv("command")
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 && h.RequiredExecutable() != "" {
		argv = []string{h.RequiredExecutable()}
	}
	flags, err := h.Flags()
	if err != nil {
		return nil, err
	}
	return append(argv, flags...), nil
}

// SetExtraEnv adds variables to every process the hook starts.
func (h *Hook) SetExtraEnv(env ...string) { h.extraEnv = append(h.extraEnv, env...) }

// ShouldSkip reports a skipped hook. A required hook is never skipped.
func (h *Hook) ShouldSkip() bool { return h.Skip() && !h.Required() }

// SkipRequested reports a skip that was refused because the hook is required.
func (h *Hook) SkipRequested() bool { return h.Skip() && h.Required() }

type fileCheckout interface{ FileCheckout() bool }

// CanRun reports whether the hook applies to this invocation.
func (h *Hook) CanRun() (bool, error) {
	if !h.Enabled() {
		return false, nil
	}
	if fc, ok := hookctx.As[fileCheckout](h.hctx); ok && fc.FileCheckout() && h.opts.BoolOr("skipFileCheckout", true) {
		return false, nil
	}
	if !h.opts.Bool("requiresFiles") {
		return true, nil
	}
	files, err := h.ApplicableFiles()
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// ApplicableFiles filters the context's modified files through include and
// exclude globs. Relative globs are anchored at the repository root.
func (h *Hook) ApplicableFiles() ([]string, error) {
	h.filesOnce.Do(func() {
		modified, err := h.hctx.ModifiedFiles()
		if err != nil {
			h.filesErr = err
			return
		}
		root := h.hctx.Repo().Root()
		include := anchorGlobs(root, h.opts.StringList("include"))
		exclude := anchorGlobs(root, h.opts.StringList("exclude"))
		for _, f := range modified {
			if applicable(filepath.ToSlash(f), include, exclude) {
				h.files = append(h.files, f)
			}
		}
	})
	return h.files, h.filesErr
}

func anchorGlobs(root string, globs []string) []string {
	out := make([]string, 0, len(globs))
	for _, g := range globs {
		if !filepath.IsAbs(g) {
			g = filepath.Join(root, g)
		}
		out = append(out, filepath.ToSlash(g))
	}
	return out
}

func applicable(file string, include, exclude []string) bool {
	if len(include) > 0 && !matchAny(file, include) {
		return false
	}
	return !matchAny(file, exclude)
}

func matchAny(file string, globs []string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, file); err == nil && ok {
			return true
		}
	}
	return false
}

// Environ returns the process environment with the hook's env option
// applied: configured values override, null values remove.
func (h *Hook) Environ() []string {
	set, unset := h.opts.Env()
	drop := make(map[string]bool, len(set)+len(unset))
	for k := range set {
		drop[k] = true
	}
	for _, k := range unset {
		drop[k] = true
	}
	var env []string
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if !drop[k] {
			env = append(env, kv)
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+set[k])
	}
	return append(env, h.extraEnv...)
}

// Execute runs argv with files appended as arguments, batching them when the
// list is long.
func (h *Hook) Execute(ctx context.Context, argv []string, files []string) (*proc.Result, error) {
	return proc.Run(ctx, proc.Command{Argv: argv, Args: files, Env: h.Environ(), Dir: h.hctx.Repo().Root()})
}

// ExecuteHook runs argv with the original hook arguments and stdin.
func (h *Hook) ExecuteHook(ctx context.Context, argv []string) (*proc.Result, error) {
	return h.hctx.ExecuteHook(ctx, argv, h.Environ())
}

// WrapRun checks requirements, runs the check and normalizes its result.
// Message-processing failures and cancellation are returned as errors; any
// other error from the check becomes a failing outcome.
func (h *Hook) WrapRun(ctx context.Context) (Outcome, error) {
	if msg := h.checkRequirements(); msg != "" {
		return Outcome{Status: StatusFail, Output: msg}, nil
	}

	res, err := h.check.Run(ctx, h)
	var out Outcome
	if err == nil {
		out, err = normalize(res, h.processor())
	}
	if err != nil {
		if errors.Is(err, hookerr.ErrMessageProcessing) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Outcome{}, err
		}
		logger.Debug("hook: check raised an error", logger.String("hook", h.name), logger.Err(err))
		return Outcome{Status: StatusFail, Output: fmt.Sprintf("Hook raised unexpected error: %v", err)}, nil
	}

	out.Status = transformStatus(out.Status, h.opts.String("onFail"), h.opts.String("onWarn"))
	return out, nil
}

func (h *Hook) processor() *MessageProcessor {
	p := &MessageProcessor{Setting: h.opts.String("problemOnUnmodifiedLine")}
	if ld, ok := hookctx.As[hookctx.LineDiffer](h.hctx); ok {
		p.Lines = ld
	}
	return p
}

// checkRequirements returns install guidance when a required executable or
// library is missing, "" when everything is present.
func (h *Hook) checkRequirements() string {
	install := h.opts.String("installCommand")
	if exe := h.RequiredExecutable(); exe != "" && !h.executableAvailable(exe) {
		return assets.MustRender(assets.TemplateMissingExecutable, map[string]any{
			"name": h.name, "executable": exe, "installCommand": install,
		})
	}
	root := h.hctx.Repo().Root()
	for _, lib := range h.RequiredLibraries() {
		path := lib
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, lib)
		}
		if _, err := os.Stat(path); err != nil {
			return assets.MustRender(assets.TemplateMissingLibrary, map[string]any{
				"name": h.name, "library": lib, "installCommand": install,
			})
		}
	}
	return ""
}

func (h *Hook) executableAvailable(exe string) bool {
	if strings.ContainsRune(exe, '/') || strings.ContainsRune(exe, filepath.Separator) {
		path := exe
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.hctx.Repo().Root(), exe)
		}
		info, err := os.Stat(path)
		return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
	}
	_, err := h.lookPath(exe)
	return err == nil
}
