package git

import (
	"errors"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Transient state files git keeps in the git directory while an operation
// is in progress.
const (
	MergeHead      = "MERGE_HEAD"
	MergeMode      = "MERGE_MODE"
	MergeMsg       = "MERGE_MSG"
	CherryPickHead = "CHERRY_PICK_HEAD"
)

// StateFiles reads and writes files directly under the git directory.
type StateFiles struct {
	fs billy.Filesystem
}

// State returns a store rooted at the repository's git directory.
func (r *Repo) State() *StateFiles {
	return &StateFiles{fs: osfs.New(r.gitDir)}
}

// Read returns the file's contents and whether it exists.
func (s *StateFiles) Read(name string) (string, bool, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", true, err
	}
	return string(data), true, nil
}

// Write replaces the file's contents.
func (s *StateFiles) Write(name, content string) error {
	return util.WriteFile(s.fs, name, []byte(content), 0o644)
}

// Exists reports whether the file is present.
func (s *StateFiles) Exists(name string) bool {
	_, err := s.fs.Stat(name)
	return err == nil
}

// Remove deletes the file; a missing file is not an error.
func (s *StateFiles) Remove(name string) error {
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
