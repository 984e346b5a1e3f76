package hook

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/affiance/internal/gittest"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/internal/proc"
	"github.com/fulmenhq/affiance/pkg/config"
)

func TestCommandCheck(t *testing.T) {
	fc := newFakeContext(t, "a.txt", "b.txt")
	fc.args = []string{"origin"}
	fc.input = "ref-line\n"

	tests := []struct {
		name   string
		opts   config.Options
		status Status
		output string
	}{
		{
			"zero exit passes",
			config.Options{"command": []any{"true"}},
			StatusPass, "",
		},
		{
			"failure reports combined output",
			config.Options{"command": []any{"sh", "-c", "echo out; echo err >&2; exit 2"}},
			StatusFail, "out\nerr",
		},
		{
			"files passed as arguments",
			config.Options{"requiresFiles": true, "include": "**/a.txt", "command": []any{"sh", "-c", `basename "$1"; exit 1`, "sh"}},
			StatusFail, "a.txt",
		},
		{
			"hook arguments and stdin passed through",
			config.Options{"command": []any{"sh", "-c", `echo "$1"; cat; exit 1`, "sh"}},
			StatusFail, "origin\nref-line",
		},
		{
			"env applied",
			config.Options{"command": "sh -c 'echo $GREETING; exit 1'", "env": map[string]any{"GREETING": "hello"}},
			StatusFail, "hello",
		},
		{
			"required executable is the command",
			config.Options{"requiredExecutable": "false"},
			StatusFail, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New("Custom", KindAdHoc, tt.opts, fc, CommandCheck{})
			out, err := h.WrapRun(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.output, out.Output)
		})
	}
}

func TestCommandCheckWithoutCommand(t *testing.T) {
	fc := newFakeContext(t)
	h := New("Custom", KindAdHoc, config.Options{}, fc, CommandCheck{})
	_, err := CommandCheck{}.Run(context.Background(), h)
	assert.Error(t, err)
}

func TestPluginCheck(t *testing.T) {
	fc := newFakeContext(t, "a.go")
	script := gittest.WriteFile(t, fc.repo.Root(), ".git-hooks/pre_commit/custom.sh",
		"#!/bin/sh\necho '[{\"type\":\"warning\",\"file\":\"a.go\",\"line\":1,\"content\":\"a.go:1 '\"$AFFIANCE_HOOK_NAME\"'\"}]'\n")
	require.NoError(t, os.Chmod(script, 0o755))

	h := New("Custom", KindPlugin, config.Options{"requiresFiles": true}, fc, PluginCheck{Path: script})
	h.SetExtraEnv("AFFIANCE_HOOK_NAME=Custom")
	out, err := h.WrapRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusWarn, out.Status)
	assert.Equal(t, "a.go:1 Custom\n", out.Output)
}

func TestDecodePluginOutput(t *testing.T) {
	tests := []struct {
		name    string
		res     proc.Result
		want    Result
		wantErr bool
	}{
		{"record", proc.Result{Stdout: `{"status":"warn","output":"careful"}`}, StatusOutput{Status: StatusWarn, Output: "careful"}, false},
		{"record with bad status", proc.Result{Stdout: `{"status":"maybe"}`}, nil, true},
		{"malformed record", proc.Result{Stdout: `{"status":`}, nil, true},
		{
			"messages",
			proc.Result{Stdout: `[{"type":"error","file":"x.go","line":4,"content":"x.go:4 bad"}]`},
			Messages{{Type: MessageError, File: "x.go", Line: 4, Content: "x.go:4 bad"}},
			false,
		},
		{"array of non-messages", proc.Result{Stdout: `[1, 2]`}, nil, true},
		{"array with unknown type", proc.Result{Stdout: `[{"type":"info","content":"x"}]`}, nil, true},
		{"text success", proc.Result{Stdout: "all good\n"}, StatusOutput{Status: StatusPass, Output: "all good"}, false},
		{"text failure", proc.Result{Stdout: "bad\n", Stderr: "worse\n", ExitCode: 1}, StatusOutput{Status: StatusFail, Output: "bad\nworse"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.res
			got, err := DecodePluginOutput(&res)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, hookerr.ErrMessageProcessing))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry(t *testing.T) {
	saved := ResetRegistryForTesting()
	defer RestoreRegistry(saved)

	factory := func(config.Options) (Check, error) { return CheckFunc(nil), nil }
	Register("PreCommit", "Zeta", factory)
	Register("PreCommit", "Alpha", factory)
	Register("CommitMsg", "Width", factory)

	reg := DefaultRegistry()
	assert.True(t, reg.Has("PreCommit", "Alpha"))
	assert.False(t, reg.Has("PreCommit", "Width"))
	assert.Equal(t, []string{"Alpha", "Zeta"}, reg.Names("PreCommit"))
	assert.Empty(t, reg.Names("PrePush"))

	_, ok := reg.Lookup("CommitMsg", "Width")
	assert.True(t, ok)

	assert.NotSame(t, saved, reg)
}
