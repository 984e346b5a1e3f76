package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/aymerick/raymond"
)

//go:embed embedded_config/default.yml
var DefaultConfig []byte

//go:embed embedded_schemas/config.json
var ConfigSchema []byte

//go:embed embedded_templates
var Templates embed.FS

// Template names under embedded_templates.
const (
	TemplateMissingExecutable = "missing-executable.hbs"
	TemplateMissingLibrary    = "missing-library.hbs"
	TemplateHookSignature     = "hook-signature.hbs"
	TemplateConfigSignature   = "config-signature.hbs"
)

func GetTemplatesFS() fs.FS {
	if sub, err := fs.Sub(Templates, "embedded_templates"); err == nil {
		return sub
	}
	return Templates
}

// Render executes an embedded handlebars template against data and trims the
// trailing newline.
func Render(name string, data map[string]any) (string, error) {
	src, err := fs.ReadFile(GetTemplatesFS(), name)
	if err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	out, err := raymond.Render(string(src), data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// MustRender is Render for templates whose data shape is fixed at the call
// site; a failure is a programming error.
func MustRender(name string, data map[string]any) string {
	out, err := Render(name, data)
	if err != nil {
		panic(err)
	}
	return out
}
