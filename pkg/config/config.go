// Package config is the resolved hook configuration: a layered tree of hook
// type sections, each mapping hook names (and the ALL pseudo-hook) to option
// records. It answers which hooks exist, how they are classified and whether
// they are enabled, and it owns the configuration signature kept in the
// repository's local git config.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	allHooks = "ALL"

	keyPluginDirectory  = "pluginDirectory"
	keyVerifySignatures = "verifySignatures"
	keyConcurrency      = "concurrency"

	defaultPluginDirectory = ".git-hooks"
)

// BuiltIns reports which hooks ship with the engine.
type BuiltIns interface {
	Has(hookType, name string) bool
	Names(hookType string) []string
}

// LocalStore is the repository-local git config.
type LocalStore interface {
	ConfigGet(key string) (string, error)
	ConfigSet(key, value string) error
}

// Config is a resolved configuration tree bound to a repository.
type Config struct {
	tree     map[string]any
	root     string
	builtIns BuiltIns
	store    LocalStore
	settings Settings
	validate bool
	source   string

	concurrencyOnce sync.Once
	concurrency     int
	concurrencyErr  error
}

// Option customizes New.
type Option func(*Config)

// WithRoot sets the repository root used to resolve the plugin directory.
func WithRoot(root string) Option { return func(c *Config) { c.root = root } }

// WithBuiltIns sets the built-in hook registry used for classification.
func WithBuiltIns(b BuiltIns) Option { return func(c *Config) { c.builtIns = b } }

// WithStore sets the local git config store for signatures.
func WithStore(s LocalStore) Option { return func(c *Config) { c.store = s } }

// WithSettings overrides the process settings read from the environment.
func WithSettings(s Settings) Option { return func(c *Config) { c.settings = s } }

// WithoutValidation skips the construction-time validation pass.
func WithoutValidation() Option { return func(c *Config) { c.validate = false } }

// WithSource names the file the tree came from, for messages.
func WithSource(path string) Option { return func(c *Config) { c.source = path } }

// New normalizes and, unless disabled, validates tree. The tree is copied.
func New(tree map[string]any, opts ...Option) (*Config, error) {
	c := &Config{
		tree:     deepCopyMap(tree),
		validate: true,
		settings: LoadSettings(),
		source:   ".affiance.yml",
	}
	if c.tree == nil {
		c.tree = make(map[string]any)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.normalize()
	if c.validate {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// normalize guarantees every hook type section exists, carries an ALL entry
// and holds only map-valued records.
func (c *Config) normalize() {
	for _, ht := range HookTypes {
		section, ok := asMap(c.tree[ht.Config])
		if !ok {
			section = make(map[string]any)
		}
		for name, rec := range section {
			if m, ok := asMap(rec); ok {
				section[name] = m
			} else if rec == nil {
				section[name] = map[string]any{}
			}
		}
		if _, ok := section[allHooks].(map[string]any); !ok {
			section[allHooks] = map[string]any{}
		}
		c.tree[ht.Config] = section
	}
}

// Tree returns a copy of the configuration tree.
func (c *Config) Tree() map[string]any { return deepCopyMap(c.tree) }

// Root returns the repository root the config is bound to.
func (c *Config) Root() string { return c.root }

// Source returns the name of the repository configuration file.
func (c *Config) Source() string { return c.source }

func (c *Config) section(hookType string) map[string]any {
	s, _ := c.tree[hookType].(map[string]any)
	return s
}

func (c *Config) record(hookType, name string) (map[string]any, bool) {
	rec, ok := asMap(c.section(hookType)[name])
	return rec, ok
}

// ForHook returns the effective options of a hook: its record merged over
// the section's ALL record, with enabled recomputed by EnabledFor.
func (c *Config) ForHook(name, hookType string) Options {
	all, _ := c.record(hookType, allHooks)
	own, _ := c.record(hookType, name)
	merged := SmartMerge(all, own)
	merged["enabled"] = c.IsHookEnabled(hookType, name)
	return Options(merged)
}

// IsHookEnabled applies the enablement rule: the hook's own enabled value
// wins, then ALL's, and a hook with neither is disabled.
func (c *Config) IsHookEnabled(hookType, name string) bool {
	if own, ok := c.record(hookType, name); ok {
		if b, ok := own["enabled"].(bool); ok {
			return b
		}
	}
	if all, ok := c.record(hookType, allHooks); ok {
		if b, ok := all["enabled"].(bool); ok {
			return b
		}
	}
	return false
}

// DeclaredHooks returns the hook names configured for a type, ALL excluded,
// in sorted order.
func (c *Config) DeclaredHooks(hookType string) []string {
	var names []string
	for name := range c.section(hookType) {
		if name != allHooks {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HookExists reports whether name is built in, a plugin, or configured.
func (c *Config) HookExists(scope Scope, name string) bool {
	if c.IsBuiltInHook(scope, name) || c.IsPluginHook(scope, name) {
		return true
	}
	_, ok := c.record(scope.HookConfigName(), name)
	return ok && name != allHooks
}

// IsBuiltInHook reports whether the engine ships a hook of this name.
func (c *Config) IsBuiltInHook(scope Scope, name string) bool {
	return c.builtIns != nil && c.builtIns.Has(scope.HookConfigName(), name)
}

// IsPluginHook reports whether a plugin file for the hook exists.
func (c *Config) IsPluginHook(scope Scope, name string) bool {
	_, ok := c.PluginPath(scope, name)
	return ok
}

// IsAdHocHook reports a hook defined purely by configuration: neither built
// in nor a plugin, with a command or requiredExecutable.
func (c *Config) IsAdHocHook(scope Scope, name string) bool {
	if c.IsBuiltInHook(scope, name) || c.IsPluginHook(scope, name) {
		return false
	}
	opts := c.ForHook(name, scope.HookConfigName())
	return opts.Has("command") || opts.Has("requiredExecutable")
}

// EnabledBuiltInHooks returns enabled built-in hooks in sorted order.
func (c *Config) EnabledBuiltInHooks(scope Scope) []string {
	return c.enabled(scope, c.IsBuiltInHook)
}

// EnabledAdHocHooks returns enabled ad-hoc hooks in sorted order.
func (c *Config) EnabledAdHocHooks(scope Scope) []string {
	return c.enabled(scope, c.IsAdHocHook)
}

func (c *Config) enabled(scope Scope, is func(Scope, string) bool) []string {
	var names []string
	for _, name := range c.DeclaredHooks(scope.HookConfigName()) {
		if is(scope, name) && c.IsHookEnabled(scope.HookConfigName(), name) {
			names = append(names, name)
		}
	}
	return names
}

// PluginDirectory returns the absolute plugin directory.
func (c *Config) PluginDirectory() string {
	dir, _ := c.tree[keyPluginDirectory].(string)
	if dir == "" {
		dir = defaultPluginDirectory
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.root, filepath.FromSlash(dir))
}

// PluginPath locates the plugin file for a hook. The file may be named after
// the hook or its snake_case form, with or without an extension.
func (c *Config) PluginPath(scope Scope, name string) (string, bool) {
	if name == "" || name == allHooks {
		return "", false
	}
	dir := filepath.Join(c.PluginDirectory(), pluginDirFor(scope))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	wanted := map[string]bool{name: true, snakeCase(name): true}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if wanted[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// PluginHooks returns the hook names of every plugin file for the type.
func (c *Config) PluginHooks(scope Scope) []string {
	dir := filepath.Join(c.PluginDirectory(), pluginDirFor(scope))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := NormalizeHookName(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// snakeCase turns EsLint into es_lint.
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prev := runes[i-1]
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
