package signer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/gittest"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/pkg/config"
)

func newRepo(t *testing.T) (*git.Repo, string) {
	t.Helper()
	dir := gittest.NewRepoWithCommit(t)
	gittest.WriteFile(t, dir, "bin/lint", "#!/bin/sh\nexit 0\n")
	gittest.Git(t, dir, "add", "bin/lint")
	gittest.Git(t, dir, "commit", "-q", "-m", "Add linter")
	repo, err := git.Open(dir)
	require.NoError(t, err)
	return repo, dir
}

type failingStore struct {
	Repository
}

func (failingStore) ConfigSet(string, string) error { return errors.New("read-only config") }

func TestKey(t *testing.T) {
	assert.Equal(t, "affiance.PreCommit.CustomLint.signature", Key("PreCommit", "CustomLint"))
}

func TestRoundTrip(t *testing.T) {
	repo, dir := newRepo(t)
	plugin := gittest.WriteFile(t, dir, ".git-hooks/pre_commit/custom_lint.sh", "#!/bin/sh\necho ok\n")
	opts := config.Options{"enabled": true, "flags": []any{"--strict"}}

	s := New(repo, "PreCommit", "CustomLint", opts, plugin)
	changed, err := s.HasSignatureChanged()
	require.NoError(t, err)
	assert.True(t, changed, "an unsigned hook counts as changed")

	require.NoError(t, s.UpdateSignature())
	changed, err = s.HasSignatureChanged()
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repo.ConfigGet(Key("PreCommit", "CustomLint"))
	require.NoError(t, err)
	sig, err := s.Signature()
	require.NoError(t, err)
	assert.Equal(t, sig, stored)
	assert.Len(t, sig, 64)

	tests := []struct {
		name    string
		opts    config.Options
		source  string
		changed bool
	}{
		{"skip only", config.Options{"enabled": true, "flags": []any{"--strict"}, "skip": true}, "", false},
		{"option changed", config.Options{"enabled": true, "flags": []any{"--lenient"}}, "", true},
		{"option added", config.Options{"enabled": true, "flags": []any{"--strict"}, "quiet": true}, "", true},
		{"source changed", opts, "#!/bin/sh\necho changed\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.source != "" {
				gittest.WriteFile(t, dir, ".git-hooks/pre_commit/custom_lint.sh", tt.source)
				t.Cleanup(func() {
					gittest.WriteFile(t, dir, ".git-hooks/pre_commit/custom_lint.sh", "#!/bin/sh\necho ok\n")
				})
			}
			changed, err := New(repo, "PreCommit", "CustomLint", tt.opts, plugin).HasSignatureChanged()
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestMissingSourceIsEmpty(t *testing.T) {
	repo, dir := newRepo(t)
	missing := filepath.Join(dir, ".git-hooks", "pre_commit", "gone.sh")
	opts := config.Options{"enabled": true}

	first, err := New(repo, "PreCommit", "Gone", opts, missing).Signature()
	require.NoError(t, err)
	second, err := New(repo, "PreCommit", "Gone", opts, missing).Signature()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	gittest.WriteFile(t, dir, ".git-hooks/pre_commit/gone.sh", "#!/bin/sh\n")
	third, err := New(repo, "PreCommit", "Gone", opts, missing).Signature()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestAdHocSourcePath(t *testing.T) {
	repo, dir := newRepo(t)
	gittest.WriteFile(t, dir, "untracked.sh", "#!/bin/sh\n")

	tests := []struct {
		name    string
		opts    config.Options
		want    string
		invalid bool
	}{
		{"tracked command", config.Options{"command": "bin/lint --fix"}, filepath.Join(dir, "bin", "lint"), false},
		{"tracked command list", config.Options{"command": []any{"bin/lint", "--fix"}}, filepath.Join(dir, "bin", "lint"), false},
		{"required executable", config.Options{"requiredExecutable": "bin/lint"}, filepath.Join(dir, "bin", "lint"), false},
		{"command on PATH", config.Options{"command": "npm test"}, "", true},
		{"untracked file", config.Options{"command": "untracked.sh"}, "", true},
		{"absolute path", config.Options{"command": filepath.Join(dir, "bin", "lint")}, "", true},
		{"nothing to sign", config.Options{"enabled": true}, "", true},
		{"bad quoting", config.Options{"command": "bin/lint 'unterminated"}, "", true},
		{"command on PATH without verification", config.Options{"command": "npm test", "verifySignatures": false}, "", false},
		{"nothing to sign without verification", config.Options{"verifySignatures": false}, "", false},
		{"tracked command without verification", config.Options{"command": "bin/lint", "verifySignatures": false}, filepath.Join(dir, "bin", "lint"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := New(repo, "PreCommit", "AdHoc", tt.opts, "").SourcePath()
			if tt.invalid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, hookerr.ErrInvalidHookDefinition))
				assert.Contains(t, err.Error(), "PreCommit::AdHoc")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
		})
	}
}

func TestAdHocSignatureTracksCommandFile(t *testing.T) {
	repo, dir := newRepo(t)
	s := New(repo, "PrePush", "Lint", config.Options{"command": "bin/lint"}, "")
	require.NoError(t, s.UpdateSignature())

	changed, err := s.HasSignatureChanged()
	require.NoError(t, err)
	assert.False(t, changed)

	gittest.WriteFile(t, dir, "bin/lint", "#!/bin/sh\nexit 1\n")
	changed, err = s.HasSignatureChanged()
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestUnverifiedAdHocSignsOptionsOnly(t *testing.T) {
	repo, _ := newRepo(t)
	opts := config.Options{"command": "npm run lint", "verifySignatures": false}
	s := New(repo, "PreCommit", "Lint", opts, "")
	require.NoError(t, s.UpdateSignature())

	changed, err := s.HasSignatureChanged()
	require.NoError(t, err)
	assert.False(t, changed)

	edited := New(repo, "PreCommit", "Lint", config.Options{"command": "npm run lint:fix", "verifySignatures": false}, "")
	changed, err = edited.HasSignatureChanged()
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestUpdateSignatureStoreFailure(t *testing.T) {
	repo, dir := newRepo(t)
	plugin := gittest.WriteFile(t, dir, ".git-hooks/pre_commit/x.sh", "x")

	err := New(failingStore{repo}, "PreCommit", "X", config.Options{}, plugin).UpdateSignature()
	require.Error(t, err)
	assert.True(t, errors.Is(err, hookerr.ErrConfiguration))
	assert.Contains(t, err.Error(), "read-only config")
}
