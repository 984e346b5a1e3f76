// Package signer fingerprints plugin and ad-hoc hooks so that changes to
// their source or configuration must be approved before they run.
package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/pkg/config"
	"github.com/fulmenhq/affiance/pkg/logger"
	"github.com/fulmenhq/affiance/pkg/safeio"
)

// Repository is what the signer needs from the git layer.
type Repository interface {
	config.LocalStore
	Root() string
	IsTracked(path string) bool
}

// Signer computes and records one hook's signature.
type Signer struct {
	repo     Repository
	hookType string
	name     string
	opts     config.Options
	// plugin is the plugin file; empty for ad-hoc hooks.
	plugin string
}

// New returns a signer for a plugin hook when pluginPath is set, otherwise for
// the ad-hoc hook configured by opts.
func New(repo Repository, hookType, name string, opts config.Options, pluginPath string) *Signer {
	return &Signer{repo: repo, hookType: hookType, name: name, opts: opts, plugin: pluginPath}
}

// Key is the local git config key holding the signature.
func Key(hookType, name string) string {
	return fmt.Sprintf("affiance.%s.%s.signature", hookType, name)
}

// SourcePath returns the file whose contents participate in the signature.
// An ad-hoc hook with verifySignatures: false whose command is not a tracked
// file has no source; only its options are signed.
func (s *Signer) SourcePath() (string, error) {
	if s.plugin != "" {
		return s.plugin, nil
	}
	argv, err := s.opts.Argv("command")
	if err != nil {
		return "", s.invalid(err.Error())
	}
	if len(argv) == 0 {
		if exe := s.opts.String("requiredExecutable"); exe != "" {
			argv = []string{exe}
		}
	}
	verify := s.opts.BoolOr("verifySignatures", true)
	if len(argv) == 0 {
		if !verify {
			return "", nil
		}
		return "", s.invalid("no command or requiredExecutable to sign")
	}
	token := argv[0]
	if filepath.IsAbs(token) || !s.repo.IsTracked(token) {
		if !verify {
			return "", nil
		}
		return "", s.invalid(fmt.Sprintf("'%s' must be a relative path to a file tracked in this repository to verify its signature, or set verifySignatures: false", token))
	}
	return filepath.Join(s.repo.Root(), filepath.FromSlash(token)), nil
}

func (s *Signer) invalid(reason string) error {
	return &hookerr.HookError{Kind: hookerr.ErrInvalidHookDefinition, Hook: s.hookType + "::" + s.name, Err: fmt.Errorf("%s", reason)}
}

// Signature is the hex SHA-256 of the hook's source contents followed by its
// JSON-encoded options without the keys excluded from signing. A missing
// source file counts as empty.
func (s *Signer) Signature() (string, error) {
	path, err := s.SourcePath()
	if err != nil {
		return "", err
	}
	var contents []byte
	if path != "" {
		base := s.repo.Root()
		if s.plugin != "" {
			base = filepath.Dir(s.plugin)
		}
		contents, err = safeio.ReadFileOrEmpty(base, path)
		if err != nil {
			return "", fmt.Errorf("read hook source %s: %w", path, err)
		}
	}
	cfg, err := json.Marshal(config.StripIgnored(s.opts))
	if err != nil {
		return "", fmt.Errorf("encode options of %s: %w", s.name, err)
	}
	h := sha256.New()
	h.Write(contents)
	h.Write(cfg)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// StoredSignature returns the recorded signature, "" if none.
func (s *Signer) StoredSignature() (string, error) {
	sig, err := s.repo.ConfigGet(Key(s.hookType, s.name))
	if err != nil {
		return "", fmt.Errorf("%w: unable to read signature of %s: %v", hookerr.ErrConfiguration, s.name, err)
	}
	return sig, nil
}

// HasSignatureChanged reports whether the current signature differs from the
// recorded one. A hook that was never signed has changed.
func (s *Signer) HasSignatureChanged() (bool, error) {
	sig, err := s.Signature()
	if err != nil {
		return false, err
	}
	stored, err := s.StoredSignature()
	if err != nil {
		return false, err
	}
	logger.Debug("signer: compared hook signature",
		logger.String("hook", s.name),
		logger.String("type", s.hookType),
		logger.Bool("changed", sig != stored))
	return sig != stored, nil
}

// UpdateSignature records the current signature.
func (s *Signer) UpdateSignature() error {
	sig, err := s.Signature()
	if err != nil {
		return err
	}
	if err := s.repo.ConfigSet(Key(s.hookType, s.name), sig); err != nil {
		return fmt.Errorf("%w: unable to record signature of %s: %v", hookerr.ErrConfiguration, s.name, err)
	}
	logger.Debug("signer: hook signature updated", logger.String("hook", s.name), logger.String("signature", sig))
	return nil
}
