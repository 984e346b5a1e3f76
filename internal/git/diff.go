package git

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DiffOptions selects which change set a diff query looks at.
type DiffOptions struct {
	// Staged compares the index against HEAD (--cached).
	Staged bool
	// Refs are passed verbatim after the flags, e.g. {"HEAD~", "HEAD"}.
	Refs []string
	// Subcommand defaults to "diff"; "show" is used for single commits.
	Subcommand string
}

func (o DiffOptions) subcommand() []string {
	if o.Subcommand == "show" {
		return []string{"show", "--format=%n"}
	}
	if o.Subcommand != "" {
		return []string{o.Subcommand}
	}
	return []string{"diff"}
}

func (o DiffOptions) flags() []string {
	var f []string
	if o.Staged {
		f = append(f, "--cached")
	}
	return append(f, o.Refs...)
}

// ModifiedFiles returns absolute paths of added, copied, modified or renamed
// files in the selected change set. Submodule changes are ignored.
func (r *Repo) ModifiedFiles(opts DiffOptions) ([]string, error) {
	args := append(opts.subcommand(), "--name-only", "-z", "--diff-filter=ACMR", "--ignore-submodules=all")
	args = append(args, opts.flags()...)
	out, err := r.Exec(args...)
	if err != nil {
		return nil, err
	}
	if !out.Success() {
		return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(out.Stderr))
	}
	var files []string
	for _, p := range splitNul(out.Stdout) {
		files = append(files, r.Abs(p))
	}
	return files, nil
}

// ModifiedLines returns the line numbers (in the new version of file) touched
// by the selected change set.
func (r *Repo) ModifiedLines(file string, opts DiffOptions) ([]int, error) {
	args := append(opts.subcommand(), "--no-color", "--no-ext-diff", "-U0")
	args = append(args, opts.flags()...)
	args = append(args, "--", r.Abs(file))
	out, err := r.Exec(args...)
	if err != nil {
		return nil, err
	}
	if !out.Success() {
		return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(out.Stderr))
	}
	return parseModifiedLines([]byte(out.Stdout)), nil
}

var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// parseModifiedLines extracts new-side line numbers from -U0 hunk headers.
// A hunk "+c,d" covers lines c..c+d-1; d defaults to 1 and d=0 is a pure
// deletion that touches no new line.
func parseModifiedLines(data []byte) []int {
	seen := make(map[int]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		m := hunkHeader.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		start := atoiSafe(m[1])
		count := 1
		if m[2] != "" {
			count = atoiSafe(m[2])
		}
		for ln := start; ln < start+count; ln++ {
			seen[ln] = struct{}{}
		}
	}
	lines := make([]int, 0, len(seen))
	for ln := range seen {
		lines = append(lines, ln)
	}
	sort.Ints(lines)
	return lines
}

// StagedFiles returns every path with staged changes, deletions included.
func (r *Repo) StagedFiles() ([]string, error) {
	return r.nameOnly("diff", "--cached", "--name-only", "-z")
}

// UnstagedFiles returns every tracked path with unstaged changes.
func (r *Repo) UnstagedFiles() ([]string, error) {
	return r.nameOnly("diff", "--name-only", "-z")
}

func (r *Repo) nameOnly(args ...string) ([]string, error) {
	out, err := r.Exec(args...)
	if err != nil {
		return nil, err
	}
	if !out.Success() {
		return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(out.Stderr))
	}
	var files []string
	for _, p := range splitNul(out.Stdout) {
		files = append(files, r.Abs(p))
	}
	return files, nil
}

// StagedSubmoduleRemovals returns absolute paths of submodules whose removal
// is staged. `reset --hard` leaves their working directories behind.
func (r *Repo) StagedSubmoduleRemovals() ([]string, error) {
	out, err := r.Output("diff", "--cached", "--raw", "--diff-filter=D", "--ignore-submodules=none")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range splitLines(out) {
		// :160000 000000 <sha> <sha> D\t<path>
		meta, path, ok := strings.Cut(line, "\t")
		if !ok || !strings.HasPrefix(meta, ":160000 ") {
			continue
		}
		paths = append(paths, r.Abs(path))
	}
	return paths, nil
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
