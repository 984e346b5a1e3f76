package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/gittest"
	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/internal/loader"
	"github.com/fulmenhq/affiance/internal/report"
	"github.com/fulmenhq/affiance/pkg/config"
)

// recordingContext wraps a real context and records environment calls.
type recordingContext struct {
	hookctx.Context
	calls      []string
	setupErr   error
	cleanupErr error
	cleanupCtx error
}

func (c *recordingContext) SetupEnvironment(context.Context) error {
	c.calls = append(c.calls, "setup")
	return c.setupErr
}

func (c *recordingContext) CleanupEnvironment(ctx context.Context) error {
	c.calls = append(c.calls, "cleanup")
	c.cleanupCtx = ctx.Err()
	return c.cleanupErr
}

type harness struct {
	dir    string
	hctx   *recordingContext
	reg    *hook.Registry
	out    bytes.Buffer
	cancel context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := gittest.NewRepoWithCommit(t)
	repo, err := git.Open(dir)
	require.NoError(t, err)
	inner, err := hookctx.New("post-commit", repo, nil, "")
	require.NoError(t, err)

	h := &harness{dir: dir, hctx: &recordingContext{Context: inner}, reg: hook.NewRegistry()}
	status := func(r hook.Result) hook.Factory {
		return func(config.Options) (hook.Check, error) {
			return hook.CheckFunc(func(context.Context, *hook.Hook) (hook.Result, error) { return r, nil }), nil
		}
	}
	h.reg.Register("PostCommit", "Passes", status(hook.StatusPass))
	h.reg.Register("PostCommit", "Warns", status(hook.Warn("careful")))
	h.reg.Register("PostCommit", "Fails", status(hook.Fail("broken")))
	h.reg.Register("PostCommit", "Cancels", func(config.Options) (hook.Check, error) {
		return hook.CheckFunc(func(context.Context, *hook.Hook) (hook.Result, error) {
			h.cancel()
			return hook.StatusPass, nil
		}), nil
	})
	h.reg.Register("PostCommit", "Garbles", func(config.Options) (hook.Check, error) {
		return hook.CheckFunc(func(context.Context, *hook.Hook) (hook.Result, error) {
			return nil, fmt.Errorf("%w: no match for output", hookerr.ErrMessageProcessing)
		}), nil
	})
	return h
}

func (h *harness) run(t *testing.T, hooks map[string]any) (Summary, error) {
	t.Helper()
	cfg, err := config.New(map[string]any{"PostCommit": hooks},
		config.WithRoot(h.dir),
		config.WithBuiltIns(h.reg),
		config.WithStore(memStore{}),
		config.WithSettings(config.Settings{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	defer cancel()
	return New(cfg, h.hctx, report.New(&h.out), loader.WithRegistry(h.reg)).Run(ctx)
}

type memStore struct{}

func (memStore) ConfigGet(string) (string, error) { return "", nil }
func (memStore) ConfigSet(string, string) error   { return nil }

func on(extra ...any) map[string]any {
	rec := map[string]any{"enabled": true}
	for i := 0; i+1 < len(extra); i += 2 {
		rec[extra[i].(string)] = extra[i+1]
	}
	return rec
}

func hookNames(sum Summary) []string {
	var names []string
	for _, h := range sum.Hooks {
		names = append(names, h.Name)
	}
	return names
}

func TestRunOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		hooks   map[string]any
		success bool
		failed  bool
		warned  bool
		ran     []string
	}{
		{"all pass", map[string]any{"Passes": on()}, true, false, false, []string{"Passes"}},
		{"warning does not fail", map[string]any{"Passes": on(), "Warns": on()}, true, false, true, []string{"Passes", "Warns"}},
		{"failure fails", map[string]any{"Fails": on(), "Passes": on()}, false, true, false, []string{"Fails", "Passes"}},
		{"onFail softens", map[string]any{"Fails": on("onFail", "warn")}, true, false, true, []string{"Fails"}},
		{"onWarn hardens", map[string]any{"Warns": on("onWarn", "fail")}, false, true, false, []string{"Warns"}},
		{"disabled hooks do not run", map[string]any{"Fails": map[string]any{"enabled": false}, "Passes": on()}, true, false, false, []string{"Passes"}},
		{"nothing enabled", map[string]any{}, true, false, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			sum, err := h.run(t, tt.hooks)
			require.NoError(t, err)
			assert.Equal(t, tt.success, sum.Success())
			assert.Equal(t, tt.failed, sum.Failed)
			assert.Equal(t, tt.warned, sum.Warned)
			assert.Equal(t, tt.ran, hookNames(sum))
			assert.Equal(t, []string{"setup", "cleanup"}, h.hctx.calls)
		})
	}
}

func TestRunSkips(t *testing.T) {
	h := newHarness(t)
	sum, err := h.run(t, map[string]any{
		"Fails": on("skip", true),
		"Warns": on("skip", true, "required", true),
	})
	require.NoError(t, err)

	require.Len(t, sum.Hooks, 2)
	assert.True(t, sum.Hooks[0].Skipped)
	assert.False(t, sum.Failed)
	assert.True(t, sum.Warned, "a required hook runs despite skip")
	assert.Contains(t, h.out.String(), "[Fails] SKIPPED")
	assert.Contains(t, h.out.String(), "Cannot skip Warns since it is required")
}

func TestRunInterrupted(t *testing.T) {
	h := newHarness(t)
	sum, err := h.run(t, map[string]any{"Cancels": on(), "Passes": on()})
	require.NoError(t, err)

	assert.True(t, sum.Interrupted)
	assert.False(t, sum.Success())
	assert.Empty(t, sum.Hooks)
	assert.Equal(t, []string{"setup", "cleanup"}, h.hctx.calls)
	assert.NoError(t, h.hctx.cleanupCtx, "cleanup runs with a live context")
	assert.Contains(t, h.out.String(), "interrupted")
}

func TestRunFatalHookErrorStillCleansUp(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, map[string]any{"Garbles": on(), "Passes": on()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, hookerr.ErrMessageProcessing))
	assert.Contains(t, err.Error(), "Garbles")
	assert.Equal(t, []string{"setup", "cleanup"}, h.hctx.calls)
}

func TestRunSetupAndCleanupErrors(t *testing.T) {
	setupErr := &hookerr.StepError{Kind: hookerr.ErrHookSetup, Step: "stash changes"}
	cleanupErr := &hookerr.StepError{Kind: hookerr.ErrHookCleanup, Step: "restore stashed changes"}

	t.Run("setup failure", func(t *testing.T) {
		h := newHarness(t)
		h.hctx.setupErr = setupErr
		_, err := h.run(t, map[string]any{"Passes": on()})
		assert.True(t, errors.Is(err, hookerr.ErrHookSetup))
		assert.Equal(t, []string{"setup", "cleanup"}, h.hctx.calls)
		assert.NotContains(t, h.out.String(), "[Passes]")
	})

	t.Run("cleanup failure", func(t *testing.T) {
		h := newHarness(t)
		h.hctx.cleanupErr = cleanupErr
		sum, err := h.run(t, map[string]any{"Passes": on()})
		assert.True(t, errors.Is(err, hookerr.ErrHookCleanup))
		assert.Equal(t, []string{"Passes"}, hookNames(sum))
	})

	t.Run("both", func(t *testing.T) {
		h := newHarness(t)
		h.hctx.setupErr = setupErr
		h.hctx.cleanupErr = cleanupErr
		_, err := h.run(t, map[string]any{"Passes": on()})
		assert.True(t, errors.Is(err, hookerr.ErrHookSetup))
		assert.True(t, errors.Is(err, hookerr.ErrHookCleanup))
	})
}

func TestRunLoadFailureSkipsEnvironment(t *testing.T) {
	h := newHarness(t)
	gittest.WriteFile(t, h.dir, ".git-hooks/post_commit/notify.sh", "#!/bin/sh\n")

	_, err := h.run(t, map[string]any{"Notify": on()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, hookerr.ErrInvalidHookSignature))
	assert.Empty(t, h.hctx.calls)
}
