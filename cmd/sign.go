package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/internal/loader"
	"github.com/fulmenhq/affiance/pkg/config"
)

func newSignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sign [hook]",
		Short: "Approve the configuration and, for a hook type, its plugin and ad-hoc hooks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			hookType := ""
			if len(args) == 1 {
				hookType = args[0]
			}
			return sign(wd, hookType, cmd.OutOrStdout())
		},
	}
}

func sign(dir, hookType string, out io.Writer) error {
	repo, err := git.Open(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(repo.Root(), config.WithBuiltIns(hook.DefaultRegistry()), config.WithStore(repo))
	if err != nil {
		return err
	}
	if err := cfg.UpdateSignature(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Signed configuration %s\n", cfg.Source())
	if hookType == "" {
		return nil
	}

	ht, ok := config.LookupHookType(hookType)
	if !ok {
		return fmt.Errorf("unknown hook type %q", hookType)
	}
	hctx, err := hookctx.New(ht.Script, repo, nil, "")
	if err != nil {
		return err
	}
	names, err := loader.New(cfg, hctx).UpdateSignatures()
	if err != nil {
		return err
	}
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "Signed %s hook %s\n", ht.Script, name)
	}
	return nil
}
