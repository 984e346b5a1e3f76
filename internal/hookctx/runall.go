package hookctx

import (
	"bytes"
	"context"
	"os"
	"sync"

	"github.com/fulmenhq/affiance/pkg/ignore"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// RunAll runs a hook type against every tracked file instead of a change
// set. The working tree is left alone and every line counts as modified.
type RunAll struct {
	Context

	filesOnce sync.Once
	files     []string
	filesErr  error

	linesMu sync.Mutex
	lines   map[string][]int
}

// NewRunAll wraps the context of a hook type for a full-repository run.
func NewRunAll(inner Context) *RunAll {
	return &RunAll{Context: inner, lines: make(map[string][]int)}
}

// ModifiedFiles returns every tracked file not excluded by .affianceignore.
func (r *RunAll) ModifiedFiles() ([]string, error) {
	r.filesOnce.Do(func() {
		all, err := r.AllFiles()
		if err != nil {
			r.filesErr = err
			return
		}
		matcher, err := ignore.NewMatcher(r.Repo().Root())
		if err != nil {
			r.filesErr = err
			return
		}
		r.files = existingFiles(matcher.Filter(all))
		logger.Debug("hookctx: running against all files", logger.Int("files", len(r.files)), logger.Int("ignored", len(all)-len(r.files)))
	})
	return r.files, r.filesErr
}

// ModifiedLinesInFile returns 1..n for a file of n lines.
func (r *RunAll) ModifiedLinesInFile(path string) ([]int, error) {
	abs := r.Repo().Abs(path)
	r.linesMu.Lock()
	defer r.linesMu.Unlock()
	if lines, ok := r.lines[abs]; ok {
		return lines, nil
	}
	data, err := os.ReadFile(abs) // #nosec G304 -- tracked file inside the repository
	if err != nil {
		return nil, err
	}
	n := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	lines := make([]int, n)
	for i := range lines {
		lines[i] = i + 1
	}
	r.lines[abs] = lines
	return lines, nil
}

// Unwrap returns the context of the hook type being run.
func (r *RunAll) Unwrap() Context { return r.Context }

func (r *RunAll) SetupEnvironment(context.Context) error   { return nil }
func (r *RunAll) CleanupEnvironment(context.Context) error { return nil }
