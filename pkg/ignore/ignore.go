// Package ignore provides gitignore-style file filtering using go-git
package ignore

import (
	"path/filepath"
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/fulmenhq/affiance/pkg/safeio"
)

// FileName is the repository-level list of paths excluded from full-repo runs.
const FileName = ".affianceignore"

// Matcher filters repository paths
type Matcher struct {
	root    string
	matcher gitignore.Matcher
	empty   bool
}

// NewMatcher reads the ignore file at the repository root. A missing file
// yields a matcher that ignores nothing.
func NewMatcher(repoRoot string) (*Matcher, error) {
	content, err := safeio.ReadFileOrEmpty(repoRoot, FileName)
	if err != nil {
		return nil, err
	}
	return NewMatcherFromPatterns(repoRoot, parsePatterns(string(content))), nil
}

// NewMatcherFromPatterns builds a matcher from gitignore-syntax patterns.
func NewMatcherFromPatterns(repoRoot string, patterns []string) *Matcher {
	parsed := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		parsed = append(parsed, gitignore.ParsePattern(p, nil))
	}
	return &Matcher{root: repoRoot, matcher: gitignore.NewMatcher(parsed), empty: len(parsed) == 0}
}

func parsePatterns(content string) []string {
	var patterns []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// IsIgnored checks if a file path should be ignored. Relative paths are taken
// relative to the repository root.
func (m *Matcher) IsIgnored(path string) bool {
	if m.empty {
		return false
	}
	parts := m.components(path)
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, false)
}

// Filter returns the paths that are not ignored, in order.
func (m *Matcher) Filter(paths []string) []string {
	if m.empty {
		return paths
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !m.IsIgnored(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *Matcher) components(path string) []string {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(m.root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil
		}
		path = rel
	}
	return splitPath(filepath.ToSlash(path))
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
