package assets

import (
	"encoding/json"
	"io/fs"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfigParses(t *testing.T) {
	var tree map[string]any
	if err := yaml.Unmarshal(DefaultConfig, &tree); err != nil {
		t.Fatalf("default config is not valid YAML: %v", err)
	}
	for _, section := range []string{"PreCommit", "CommitMsg", "PostCheckout", "PrePush"} {
		hooks, ok := tree[section].(map[string]any)
		if !ok {
			t.Fatalf("default config missing %s section", section)
		}
		if _, ok := hooks["ALL"]; !ok {
			t.Errorf("%s section missing ALL entry", section)
		}
	}
	if tree["pluginDirectory"] != ".git-hooks" {
		t.Errorf("pluginDirectory = %v, expected .git-hooks", tree["pluginDirectory"])
	}
}

func TestConfigSchemaIsJSON(t *testing.T) {
	var doc map[string]any
	if err := json.Unmarshal(ConfigSchema, &doc); err != nil {
		t.Fatalf("config schema is not valid JSON: %v", err)
	}
	if doc["$schema"] != "http://json-schema.org/draft-07/schema#" {
		t.Errorf("unexpected $schema: %v", doc["$schema"])
	}
}

func TestTemplatesPresent(t *testing.T) {
	fsys := GetTemplatesFS()
	for _, name := range []string{TemplateMissingExecutable, TemplateMissingLibrary, TemplateHookSignature, TemplateConfigSignature} {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("failed to read template %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("template %s is empty", name)
		}
	}
}

func TestRenderMissingExecutable(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]any
		expected string
	}{
		{
			name: "with install command",
			data: map[string]any{"name": "EsLint", "executable": "eslint", "installCommand": "npm install -g eslint"},
			expected: "'EsLint' requires the executable 'eslint', which was not found on PATH.\n" +
				"Install it with: npm install -g eslint",
		},
		{
			name: "without install command",
			data: map[string]any{"name": "Tool", "executable": "tool"},
			expected: "'Tool' requires the executable 'tool', which was not found on PATH.\n" +
				"Install it and make sure it is on your PATH.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(TemplateMissingExecutable, tt.data)
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Render() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := Render("nope.hbs", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}
