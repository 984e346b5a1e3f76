// Package loader turns a hook type's configuration into runnable hooks.
//
// Built-in hooks come from the registry. Plugin and ad-hoc hooks are loaded
// only after every one of them has passed signature verification; a single
// changed signature aborts the whole load.
package loader

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/affiance/internal/assets"
	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/internal/signer"
	"github.com/fulmenhq/affiance/pkg/config"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// Environment variables passed to plugin and ad-hoc hook processes.
const (
	EnvHookType = "AFFIANCE_HOOK_TYPE"
	EnvHookName = "AFFIANCE_HOOK_NAME"
)

// Loader loads the hooks of one hook context.
type Loader struct {
	cfg      *config.Config
	hctx     hookctx.Context
	registry *hook.Registry
}

// Option customizes a Loader.
type Option func(*Loader)

// WithRegistry replaces the default built-in registry.
func WithRegistry(r *hook.Registry) Option { return func(l *Loader) { l.registry = r } }

// New returns a loader for hctx.
func New(cfg *config.Config, hctx hookctx.Context, opts ...Option) *Loader {
	l := &Loader{cfg: cfg, hctx: hctx, registry: hook.DefaultRegistry()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns built-in hooks followed by plugin and ad-hoc hooks.
func (l *Loader) Load(ctx context.Context) ([]*hook.Hook, error) {
	builtIns, err := l.LoadBuiltIns()
	if err != nil {
		return nil, err
	}
	plugins, err := l.LoadPlugins(ctx)
	if err != nil {
		return nil, err
	}
	return append(builtIns, plugins...), nil
}

// LoadBuiltIns instantiates every enabled built-in hook.
func (l *Loader) LoadBuiltIns() ([]*hook.Hook, error) {
	hookType := l.hctx.HookConfigName()
	var hooks []*hook.Hook
	for _, name := range l.cfg.EnabledBuiltInHooks(l.hctx) {
		factory, ok := l.registry.Lookup(hookType, name)
		if !ok {
			return nil, &hookerr.HookError{Kind: hookerr.ErrHookLoad, Hook: hookType + "::" + name}
		}
		opts := l.cfg.ForHook(name, hookType)
		check, err := factory(opts)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, hook.New(name, hook.KindBuiltIn, opts, l.hctx, check))
	}
	logger.Debug("loader: built-in hooks loaded", logger.String("type", hookType), logger.Int("count", len(hooks)))
	return hooks, nil
}

type candidate struct {
	name   string
	kind   hook.Kind
	plugin string
}

// candidates lists every plugin file and enabled ad-hoc hook. A plugin named
// like a built-in hook is ignored.
func (l *Loader) candidates() []candidate {
	var out []candidate
	for _, name := range l.cfg.PluginHooks(l.hctx) {
		if l.cfg.IsBuiltInHook(l.hctx, name) {
			logger.Warn("plugin ignored: a built-in hook has the same name",
				logger.String("type", l.hctx.HookConfigName()), logger.String("hook", name))
			continue
		}
		path, ok := l.cfg.PluginPath(l.hctx, name)
		if !ok {
			continue
		}
		out = append(out, candidate{name: name, kind: hook.KindPlugin, plugin: path})
	}
	for _, name := range l.cfg.EnabledAdHocHooks(l.hctx) {
		out = append(out, candidate{name: name, kind: hook.KindAdHoc})
	}
	return out
}

func (l *Loader) signerFor(c candidate) *signer.Signer {
	return signer.New(l.hctx.Repo(), l.hctx.HookConfigName(), c.name, l.cfg.ForHook(c.name, l.hctx.HookConfigName()), c.plugin)
}

// LoadPlugins verifies signatures when verification is on, then
// instantiates plugin and ad-hoc hooks.
func (l *Loader) LoadPlugins(ctx context.Context) ([]*hook.Hook, error) {
	cands := l.candidates()
	verify, err := l.cfg.ShouldVerifySignatures()
	if err != nil {
		return nil, err
	}
	if verify && len(cands) > 0 {
		if err := l.verify(ctx, cands); err != nil {
			return nil, err
		}
	}

	hookType := l.hctx.HookConfigName()
	hooks := make([]*hook.Hook, 0, len(cands))
	for _, c := range cands {
		opts := l.cfg.ForHook(c.name, hookType)
		var check hook.Check = hook.CommandCheck{}
		if c.kind == hook.KindPlugin {
			check = hook.PluginCheck{Path: c.plugin}
		}
		h := hook.New(c.name, c.kind, opts, l.hctx, check)
		h.SetExtraEnv(EnvHookType+"="+hookType, EnvHookName+"="+c.name)
		hooks = append(hooks, h)
	}
	logger.Debug("loader: plugin hooks loaded", logger.String("type", hookType), logger.Int("count", len(hooks)))
	return hooks, nil
}

// verify computes every candidate's signature within the concurrency budget
// and fails listing all changed hooks.
func (l *Loader) verify(ctx context.Context, cands []candidate) error {
	limit, err := l.cfg.Concurrency()
	if err != nil {
		return err
	}
	changed := make([]bool, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := l.signerFor(c).HasSignatureChanged()
			if err != nil {
				return err
			}
			changed[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var names []string
	for i, c := range cands {
		if changed[i] {
			names = append(names, c.name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	remediation, err := assets.Render(assets.TemplateHookSignature, map[string]any{
		"single":     len(names) == 1,
		"hookScript": l.hctx.HookScriptName(),
	})
	if err != nil {
		return fmt.Errorf("render signature remediation: %w", err)
	}
	return &hookerr.SignatureError{HookType: l.hctx.HookConfigName(), Hooks: names, Remediation: remediation}
}

// UpdateSignatures records the current signature of every plugin and ad-hoc
// hook and returns their names.
func (l *Loader) UpdateSignatures() ([]string, error) {
	var names []string
	for _, c := range l.candidates() {
		if err := l.signerFor(c).UpdateSignature(); err != nil {
			return names, err
		}
		names = append(names, c.name)
	}
	return names, nil
}

var _ signer.Repository = (*git.Repo)(nil)
