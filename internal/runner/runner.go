// Package runner executes the hooks of one git hook invocation.
//
// Hooks run one at a time in load order. The context's environment is set up
// before the first hook and cleaned up after the last, including when a hook
// fails fatally or the run is interrupted.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/internal/loader"
	"github.com/fulmenhq/affiance/internal/report"
	"github.com/fulmenhq/affiance/pkg/config"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// HookRun records what happened to one hook.
type HookRun struct {
	Name    string
	Status  hook.Status
	Output  string
	Skipped bool
}

// Summary is the outcome of a run.
type Summary struct {
	Hooks       []HookRun
	Failed      bool
	Warned      bool
	Interrupted bool
}

// Success is true unless a hook failed or the run was interrupted. Warnings
// do not fail a run.
func (s Summary) Success() bool { return !s.Failed && !s.Interrupted }

// Runner runs the hooks of one context.
type Runner struct {
	hctx   hookctx.Context
	loader *loader.Loader
	rep    *report.Reporter
}

// New returns a runner loading hooks from cfg for hctx.
func New(cfg *config.Config, hctx hookctx.Context, rep *report.Reporter, opts ...loader.Option) *Runner {
	return &Runner{hctx: hctx, loader: loader.New(cfg, hctx, opts...), rep: rep}
}

// Run loads the hooks, prepares the environment, runs every hook and
// restores the environment. Cleanup runs even when ctx is canceled.
func (r *Runner) Run(ctx context.Context) (sum Summary, err error) {
	hooks, err := r.loader.Load(ctx)
	if err != nil {
		return sum, err
	}

	defer func() {
		cerr := r.hctx.CleanupEnvironment(context.WithoutCancel(ctx))
		if cerr == nil {
			return
		}
		if err == nil {
			err = cerr
		} else {
			err = errors.Join(err, cerr)
		}
	}()
	if err := r.hctx.SetupEnvironment(ctx); err != nil {
		return sum, err
	}

	r.rep.StartRun(r.hctx.HookScriptName())
	sum, err = r.runHooks(ctx, hooks)
	if err != nil {
		return sum, err
	}
	if sum.Interrupted {
		r.rep.Interrupted()
	}
	r.rep.Finish(r.hctx.HookScriptName(), sum.Failed, sum.Warned, sum.Interrupted)
	return sum, nil
}

func (r *Runner) runHooks(ctx context.Context, hooks []*hook.Hook) (Summary, error) {
	var sum Summary
	for _, h := range hooks {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		run, ran, err := r.runHook(ctx, h)
		if err != nil {
			if ctx.Err() != nil {
				sum.Interrupted = true
				break
			}
			return sum, err
		}
		if !ran {
			continue
		}
		sum.Hooks = append(sum.Hooks, run)
		switch run.Status {
		case hook.StatusFail:
			sum.Failed = true
		case hook.StatusWarn:
			sum.Warned = true
		}
	}
	return sum, nil
}

// runHook returns ran=false for hooks that do not apply to this invocation.
func (r *Runner) runHook(ctx context.Context, h *hook.Hook) (HookRun, bool, error) {
	run := HookRun{Name: h.Name()}
	if !h.Enabled() {
		return run, false, nil
	}
	if h.SkipRequested() {
		r.rep.RequiredNotSkipped(h)
		logger.Warn("required hook cannot be skipped", logger.String("hook", h.Name()))
	}

	ok, err := h.CanRun()
	if err != nil {
		return run, false, fmt.Errorf("hook %s: %w", h.Name(), err)
	}
	if !ok {
		return run, false, nil
	}
	if h.ShouldSkip() {
		r.rep.HookSkipped(h)
		run.Skipped = true
		return run, true, nil
	}

	start := time.Now()
	out, err := h.WrapRun(ctx)
	if err != nil {
		return run, false, fmt.Errorf("hook %s: %w", h.Name(), err)
	}
	logger.Debug("runner: hook finished",
		logger.String("hook", h.Name()),
		logger.String("status", string(out.Status)),
		logger.Duration("duration", time.Since(start)))

	if ctx.Err() != nil {
		// the outcome of a hook that was interrupted is not reported
		return run, false, ctx.Err()
	}
	r.rep.HookResult(h, out)
	run.Status, run.Output = out.Status, out.Output
	return run, true, nil
}
