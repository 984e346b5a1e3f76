package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/hook"
	_ "github.com/fulmenhq/affiance/internal/hook/builtin"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/internal/report"
	"github.com/fulmenhq/affiance/internal/runner"
	"github.com/fulmenhq/affiance/pkg/config"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// stdinHooks are the hooks git feeds on standard input.
var stdinHooks = map[string]bool{"pre-push": true, "post-rewrite": true}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <hook> [git arguments...]",
		Short: "Run the hooks configured for a git hook",
		Long: `Run the hooks configured for a git hook. Hook scripts call this with the
arguments and standard input git passed to them.

Environment:
   SKIP, SKIP_CHECKS, SKIP_HOOKS   hooks to skip (or "all")
   ONLY                            run only these hooks
   AFFIANCE_NO_VERIFY              do not verify signatures`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			return runHooks(ctx, runRequest{
				dir:      wd,
				hookType: args[0],
				args:     args[1:],
				stdin:    cmd.InOrStdin(),
				out:      cmd.OutOrStdout(),
				all:      all,
				env:      environMap(os.Environ()),
			})
		},
	}
	cmd.Flags().Bool("all", false, "Check every tracked file instead of the current change")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

type runRequest struct {
	dir      string
	hookType string
	args     []string
	stdin    io.Reader
	out      io.Writer
	all      bool
	env      map[string]string
}

func runHooks(ctx context.Context, req runRequest) error {
	ht, ok := config.LookupHookType(req.hookType)
	if !ok {
		return fmt.Errorf("unknown hook type %q", req.hookType)
	}
	var input string
	if stdinHooks[ht.Script] && req.stdin != nil {
		data, err := io.ReadAll(req.stdin)
		if err != nil {
			return fmt.Errorf("read hook input: %w", err)
		}
		input = string(data)
	}

	repo, err := git.Open(req.dir)
	if err != nil {
		return err
	}
	hctx, err := hookctx.New(ht.Script, repo, req.args, input)
	if err != nil {
		return err
	}
	if req.all {
		hctx = hookctx.NewRunAll(hctx)
	}

	cfg, err := config.Load(repo.Root(), config.WithBuiltIns(hook.DefaultRegistry()), config.WithStore(repo))
	if err != nil {
		return err
	}
	if err := cfg.VerifySignature(); err != nil {
		return err
	}
	cfg.ApplyEnvironment(hctx, req.env)

	sum, err := runner.New(cfg, hctx, report.New(req.out)).Run(ctx)
	if err != nil {
		return err
	}
	logger.Debug("run finished",
		logger.String("hook", ht.Script),
		logger.Int("hooks", len(sum.Hooks)),
		logger.Bool("success", sum.Success()))
	switch {
	case sum.Interrupted:
		return errInterrupted
	case sum.Failed:
		return errHooksFailed
	}
	return nil
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
