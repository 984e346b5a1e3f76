package git

import (
	"fmt"
	"regexp"
	"strings"
)

var submoduleStatusLine = regexp.MustCompile(`^(?P<prefix>[-+U ]?)(?P<sha>[0-9a-f]+)\s+(?P<path>\S+?)(?:\s+\((?P<describe>.+)\))?$`)

// SubmoduleStatus is one line of `git submodule status`.
type SubmoduleStatus struct {
	Prefix   string
	SHA      string
	Path     string
	Describe string
}

func (s SubmoduleStatus) Uninitialized() bool { return s.Prefix == "-" }
func (s SubmoduleStatus) Outdated() bool      { return s.Prefix == "+" }
func (s SubmoduleStatus) MergeConflict() bool { return s.Prefix == "U" }

// SubmoduleStatuses reports the state of every submodule.
func (r *Repo) SubmoduleStatuses(recursive bool) ([]SubmoduleStatus, error) {
	args := []string{"submodule", "status"}
	if recursive {
		args = append(args, "--recursive")
	}
	out, err := r.Exec(args...)
	if err != nil {
		return nil, err
	}
	if !out.Success() {
		return nil, fmt.Errorf("git submodule status: %s", strings.TrimSpace(out.Stderr))
	}
	return parseSubmoduleStatus(out.Stdout)
}

func parseSubmoduleStatus(out string) ([]SubmoduleStatus, error) {
	var statuses []SubmoduleStatus
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := submoduleStatusLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("unable to parse submodule status line %q", line)
		}
		statuses = append(statuses, SubmoduleStatus{
			Prefix:   strings.TrimSpace(m[submoduleStatusLine.SubexpIndex("prefix")]),
			SHA:      m[submoduleStatusLine.SubexpIndex("sha")],
			Path:     m[submoduleStatusLine.SubexpIndex("path")],
			Describe: m[submoduleStatusLine.SubexpIndex("describe")],
		})
	}
	return statuses, nil
}
