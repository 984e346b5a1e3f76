package git

import (
	"os"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"github.com/fulmenhq/affiance/pkg/logger"
)

// TrackedFiles returns the absolute path of every file in the index,
// submodules excluded. The index is read with go-git; the CLI is used when an
// alternate index is in effect or go-git cannot read it.
func (r *Repo) TrackedFiles() ([]string, error) {
	if os.Getenv("GIT_INDEX_FILE") == "" {
		if files, err := r.indexFiles(); err == nil {
			return files, nil
		} else {
			logger.Debug("git: reading index with go-git failed, falling back to ls-files", logger.Err(err))
		}
	}
	out, err := r.Exec("ls-files", "-z")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range splitNul(out.Stdout) {
		abs := r.Abs(p)
		if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
			continue
		}
		files = append(files, abs)
	}
	return files, nil
}

func (r *Repo) indexFiles() ([]string, error) {
	repo, err := gogit.PlainOpenWithOptions(r.root, &gogit.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return nil, err
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(idx.Entries))
	files := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		if e.Mode == filemode.Submodule {
			continue
		}
		// conflicted paths appear once per stage
		if _, dup := seen[e.Name]; dup {
			continue
		}
		seen[e.Name] = struct{}{}
		files = append(files, r.Abs(e.Name))
	}
	sort.Strings(files)
	return files, nil
}

// IsTracked reports whether path is known to the index.
func (r *Repo) IsTracked(path string) bool {
	res, err := r.Exec("ls-files", "--error-unmatch", "--", r.Abs(path))
	return err == nil && res.Success()
}
