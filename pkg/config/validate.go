package config

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fulmenhq/affiance/internal/assets"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/pkg/logger"
)

var hookNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Validate runs every structural check and returns the first failing one as
// a ConfigurationError listing all offenders of that kind.
func (c *Config) Validate() error {
	checks := []func() error{
		c.checkHookNames,
		c.checkHookEnv,
		c.checkProcessors,
		c.checkSchema,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) checkHookNames() error {
	var bad []string
	for _, ht := range HookTypes {
		for name := range c.section(ht.Config) {
			if !hookNamePattern.MatchString(name) {
				bad = append(bad, fmt.Sprintf("%s::%s", ht.Config, name))
			}
		}
	}
	if len(bad) > 0 {
		return hookerr.Configuration("hook names may only contain letters and digits", bad)
	}
	return nil
}

func (c *Config) checkHookEnv() error {
	var bad []string
	for _, ht := range HookTypes {
		for name, rec := range c.section(ht.Config) {
			m, _ := asMap(rec)
			raw, ok := m["env"]
			if !ok || raw == nil {
				continue
			}
			env, ok := asMap(raw)
			if !ok {
				bad = append(bad, fmt.Sprintf("%s::%s: env must be a mapping", ht.Config, name))
				continue
			}
			for k, v := range env {
				if _, isString := v.(string); v != nil && !isString {
					bad = append(bad, fmt.Sprintf("%s::%s: env %s has non-string value %v", ht.Config, name, k, v))
				}
			}
		}
	}
	if len(bad) > 0 {
		return hookerr.Configuration("hook env values must be strings", bad)
	}
	return nil
}

func (c *Config) checkProcessors() error {
	budget, err := c.Concurrency()
	if err != nil {
		return hookerr.Configuration(err.Error(), nil)
	}
	var bad []string
	for _, ht := range HookTypes {
		for name, rec := range c.section(ht.Config) {
			m, _ := asMap(rec)
			if n := Options(m).Int("processors", 1); n > budget {
				bad = append(bad, fmt.Sprintf("%s::%s: processors %d", ht.Config, name, n))
			}
		}
	}
	if len(bad) > 0 {
		return hookerr.Configuration(fmt.Sprintf("hooks request more processors than the concurrency budget of %d", budget), bad)
	}
	return nil
}

func (c *Config) checkSchema() error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(assets.ConfigSchema),
		gojsonschema.NewGoLoader(c.tree),
	)
	if err != nil {
		return hookerr.Configuration(fmt.Sprintf("schema validation error: %v", err), nil)
	}
	if result.Valid() {
		return nil
	}
	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return hookerr.Configuration("configuration does not match the option schema", problems)
}

// WarnMissingEnabled logs a warning for every hook in tree that does not set
// enabled explicitly. It never fails.
func WarnMissingEnabled(tree map[string]any, source string) []string {
	var missing []string
	for _, ht := range HookTypes {
		section, _ := asMap(tree[ht.Config])
		for name, rec := range section {
			if name == allHooks {
				continue
			}
			m, _ := asMap(rec)
			if _, ok := m["enabled"]; !ok {
				missing = append(missing, fmt.Sprintf("%s::%s", ht.Config, name))
			}
		}
	}
	sort.Strings(missing)
	for _, hook := range missing {
		logger.Warn(fmt.Sprintf("%s hook does not explicitly set `enabled`", hook), logger.String("file", source))
	}
	return missing
}
