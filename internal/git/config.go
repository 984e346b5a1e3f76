package git

import (
	"fmt"
	"strings"
)

// ConfigGet reads a key from the repository-local config. A missing key
// yields "" and no error; any other git failure is returned.
func (r *Repo) ConfigGet(key string) (string, error) {
	res, err := r.Exec("config", "--local", "--get", key)
	if err != nil {
		return "", err
	}
	switch res.ExitCode {
	case 0:
		return strings.TrimSpace(res.Stdout), nil
	case 1:
		return "", nil
	default:
		return "", fmt.Errorf("git config --get %s: %s", key, strings.TrimSpace(res.Stderr))
	}
}

// ConfigSet writes a key to the repository-local config.
func (r *Repo) ConfigSet(key, value string) error {
	if _, err := r.Output("config", "--local", key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// ConfigGetRegexp returns key/value pairs from the effective config (all
// scopes) whose key matches pattern.
func (r *Repo) ConfigGetRegexp(pattern string) (map[string]string, error) {
	res, err := r.Exec("config", "--get-regexp", pattern)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if res.ExitCode == 1 {
		return out, nil
	}
	if !res.Success() {
		return nil, fmt.Errorf("git config --get-regexp %s: %s", pattern, strings.TrimSpace(res.Stderr))
	}
	for _, line := range splitLines(res.Stdout) {
		key, value, _ := strings.Cut(line, " ")
		out[key] = value
	}
	return out, nil
}

// CommentChar returns core.commentChar, defaulting to "#".
func (r *Repo) CommentChar() string {
	res, err := r.Exec("config", "--get", "core.commentchar")
	if err != nil || !res.Success() {
		return "#"
	}
	c := strings.TrimSpace(res.Stdout)
	if c == "" || c == "auto" {
		return "#"
	}
	return c
}
