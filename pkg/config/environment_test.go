package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func envTestConfig(t *testing.T) *Config {
	return mustNew(t, map[string]any{
		"PreCommit": map[string]any{
			"ALL":         map[string]any{"enabled": true},
			"EsLint":      map[string]any{"enabled": true},
			"RuboCop":     map[string]any{"enabled": true},
			"YamlSyntax":  map[string]any{"enabled": true, "skip": false},
			"MergeChecks": map[string]any{"enabled": true},
		},
	}, WithBuiltIns(testBuiltIns{"PreCommit": {"TrailingWhitespace"}}))
}

func skipOf(c *Config, hook string) any {
	rec, _ := c.record("PreCommit", hook)
	return rec["skip"]
}

func TestApplyEnvironmentSkip(t *testing.T) {
	c := envTestConfig(t)
	c.ApplyEnvironment(preCommit, map[string]string{"SKIP": "EsLint"})

	assert.Equal(t, true, skipOf(c, "EsLint"))
	assert.Nil(t, skipOf(c, "RuboCop"))
	assert.Equal(t, false, skipOf(c, "YamlSyntax"))
	assert.Nil(t, skipOf(c, "ALL"))
}

func TestApplyEnvironmentUnknownHookLeavesTreeUntouched(t *testing.T) {
	c := envTestConfig(t)
	before := c.Tree()

	c.ApplyEnvironment(preCommit, map[string]string{"SKIP": "NotARealHook"})

	assert.Equal(t, before, c.Tree())
}

func TestApplyEnvironmentSeparatorsAndNormalization(t *testing.T) {
	c := envTestConfig(t)
	c.ApplyEnvironment(preCommit, map[string]string{
		"SKIP_CHECKS": "es_lint,rubocop",
		"SKIP_HOOKS":  "yaml-syntax:trailing_whitespace",
	})

	assert.Equal(t, true, skipOf(c, "EsLint"))
	assert.Equal(t, true, skipOf(c, "RuboCop"), "case-insensitive fallback")
	assert.Equal(t, true, skipOf(c, "YamlSyntax"))
	assert.Equal(t, true, skipOf(c, "TrailingWhitespace"), "built-in hooks exist without a record")
	assert.Nil(t, skipOf(c, "MergeChecks"))
}

func TestApplyEnvironmentSkipAll(t *testing.T) {
	for _, token := range []string{"all", "ALL"} {
		c := envTestConfig(t)
		c.ApplyEnvironment(preCommit, map[string]string{"SKIP": token})
		assert.Equal(t, true, skipOf(c, "ALL"), token)
		assert.True(t, c.ForHook("RuboCop", "PreCommit").Bool("skip"))
	}
}

func TestApplyEnvironmentOnly(t *testing.T) {
	c := envTestConfig(t)
	c.ApplyEnvironment(preCommit, map[string]string{"ONLY": "EsLint YamlSyntax Bogus"})

	assert.Equal(t, true, skipOf(c, "ALL"))
	assert.False(t, c.ForHook("EsLint", "PreCommit").Bool("skip"))
	assert.False(t, c.ForHook("YamlSyntax", "PreCommit").Bool("skip"))
	assert.True(t, c.ForHook("RuboCop", "PreCommit").Bool("skip"))
	_, created := c.record("PreCommit", "Bogus")
	assert.False(t, created)
}

func TestApplyEnvironmentSkipWinsOverOnly(t *testing.T) {
	c := envTestConfig(t)
	c.ApplyEnvironment(preCommit, map[string]string{"ONLY": "EsLint", "SKIP": "EsLint"})
	assert.True(t, c.ForHook("EsLint", "PreCommit").Bool("skip"))
}

func TestNormalizeHookName(t *testing.T) {
	tests := map[string]string{
		"es_lint":     "EsLint",
		"es-lint":     "EsLint",
		"EsLint":      "EsLint",
		"esLint":      "EsLint",
		"yaml_syntax": "YamlSyntax",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHookName(in), in)
	}
}
