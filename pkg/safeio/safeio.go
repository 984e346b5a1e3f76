package safeio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideBase is returned when a path resolves outside its base directory.
var ErrOutsideBase = errors.New("file path is outside base directory")

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(p)
	if strings.Contains(c, "..") {
		return "", errors.New("path traversal detected")
	}
	return filepath.ToSlash(c), nil
}

// IsContained reports whether filePath resolves to a location inside baseDir.
func IsContained(baseDir, filePath string) bool {
	_, err := containedAbs(baseDir, filePath)
	return err == nil
}

func containedAbs(baseDir, filePath string) (string, error) {
	baseDirAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", errors.New("failed to resolve base directory")
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(baseDirAbs, filePath)
	}
	filePathAbs, err := filepath.Abs(filePath)
	if err != nil {
		return "", errors.New("failed to resolve file path")
	}

	rel, err := filepath.Rel(baseDirAbs, filePathAbs)
	if err != nil {
		return "", errors.New("failed to compute relative path")
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", ErrOutsideBase
	}
	return filePathAbs, nil
}

// ReadFileContained reads a file only if it is contained within baseDir.
// Relative paths are resolved against baseDir rather than the process working
// directory, since hooks run from the repository root.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	abs, err := containedAbs(baseDir, filePath)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- abs has been verified to be contained within baseDir
	return os.ReadFile(abs)
}

// ReadFileOrEmpty behaves like ReadFileContained but treats a missing file as
// empty content. Containment violations are still errors.
func ReadFileOrEmpty(baseDir, filePath string) ([]byte, error) {
	data, err := ReadFileContained(baseDir, filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []byte{}, nil
		}
		return nil, err
	}
	return data, nil
}
