package config

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fulmenhq/affiance/pkg/logger"
)

var (
	envListSeparator = regexp.MustCompile(`[:, ]`)
	nameSeparator    = regexp.MustCompile(`[_\- ]`)
)

// NormalizeHookName converts user spellings such as es_lint, es-lint or
// esLint into the canonical EsLint form: each separated part gets an upper
// case first letter and keeps the rest of its casing.
func NormalizeHookName(name string) string {
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, part := range nameSeparator.Split(name, -1) {
		if part == "" {
			continue
		}
		b.WriteString(title.String(part))
	}
	return b.String()
}

func splitEnvList(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, tok := range envListSeparator.Split(v, -1) {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

// ApplyEnvironment honors SKIP, SKIP_CHECKS, SKIP_HOOKS and ONLY for the
// scope's hook type. Hook names that do not exist are ignored so a typo never
// creates a configuration entry.
func (c *Config) ApplyEnvironment(scope Scope, env map[string]string) {
	hookType := scope.HookConfigName()
	skipped := splitEnvList(env["SKIP"], env["SKIP_CHECKS"], env["SKIP_HOOKS"])
	only := splitEnvList(env["ONLY"])

	skipAll := len(only) > 0
	for _, tok := range skipped {
		if tok == "all" || tok == "ALL" {
			skipAll = true
		}
	}
	if skipAll {
		c.setSkip(hookType, allHooks, true)
	}

	for _, tok := range only {
		if name, ok := c.resolveHookName(scope, tok); ok {
			c.setSkip(hookType, name, false)
		}
	}
	for _, tok := range skipped {
		if name, ok := c.resolveHookName(scope, tok); ok {
			c.setSkip(hookType, name, true)
		}
	}
}

func (c *Config) setSkip(hookType, name string, skip bool) {
	section := c.section(hookType)
	if section == nil {
		section = map[string]any{allHooks: map[string]any{}}
		c.tree[hookType] = section
	}
	rec, ok := asMap(section[name])
	if !ok {
		rec = map[string]any{}
	}
	rec["skip"] = skip
	section[name] = rec
	logger.Debug("config: hook skip set from environment",
		logger.String("hook_type", hookType), logger.String("hook", name), logger.Bool("skip", skip))
}

// resolveHookName maps an environment token to an existing hook name. The
// normalized spelling is tried first, then a case-insensitive match against
// every known hook of the type.
func (c *Config) resolveHookName(scope Scope, token string) (string, bool) {
	if token == "all" || token == allHooks {
		return "", false
	}
	name := NormalizeHookName(token)
	if name == "" {
		return "", false
	}
	if c.HookExists(scope, name) {
		return name, true
	}
	for _, candidate := range c.knownHooks(scope) {
		if strings.EqualFold(candidate, name) {
			return candidate, true
		}
	}
	return "", false
}

func (c *Config) knownHooks(scope Scope) []string {
	names := c.DeclaredHooks(scope.HookConfigName())
	if c.builtIns != nil {
		names = append(names, c.builtIns.Names(scope.HookConfigName())...)
	}
	return append(names, c.PluginHooks(scope)...)
}
