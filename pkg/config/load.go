package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/affiance/internal/assets"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/pkg/logger"
	"github.com/fulmenhq/affiance/pkg/safeio"
)

// RepoConfigFiles are probed in order at the repository root.
var RepoConfigFiles = []string{".affiance.yml", ".affiance.yaml", ".affiance.toml"}

// Default returns the embedded default configuration tree.
func Default() (map[string]any, error) {
	tree, err := decode(assets.DefaultConfig, ".yml")
	if err != nil {
		return nil, fmt.Errorf("%w: embedded defaults: %v", hookerr.ErrConfiguration, err)
	}
	return tree, nil
}

// Load merges the repository's configuration file (if any) over the embedded
// defaults and builds a validated Config bound to root.
func Load(root string, opts ...Option) (*Config, error) {
	tree, err := Default()
	if err != nil {
		return nil, err
	}

	source := RepoConfigFiles[0]
	path, found := FindRepoConfig(root)
	if found {
		source = filepath.Base(path)
		override, err := LoadFile(root, path)
		if err != nil {
			return nil, err
		}
		WarnMissingEnabled(override, source)
		tree = SmartMerge(tree, override)
		logger.Debug("config: merged repository configuration", logger.String("file", path))
	}

	all := append([]Option{WithRoot(root), WithSource(source)}, opts...)
	return New(tree, all...)
}

// FindRepoConfig returns the first repository configuration file present.
func FindRepoConfig(root string) (string, bool) {
	for _, name := range RepoConfigFiles {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadFile reads one YAML or TOML configuration file inside root.
func LoadFile(root, path string) (map[string]any, error) {
	data, err := safeio.ReadFileContained(root, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", hookerr.ErrConfiguration, path, err)
	}
	tree, err := decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", hookerr.ErrConfiguration, filepath.Base(path), err)
	}
	return tree, nil
}

func decode(data []byte, ext string) (map[string]any, error) {
	tree := map[string]any{}
	switch ext {
	case ".toml":
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported configuration format " + ext)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}
