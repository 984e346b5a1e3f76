package hook

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/affiance/internal/proc"
)

// CommandCheck is the check of an ad-hoc hook: it runs the configured
// command and passes on a zero exit.
//
// When the hook requires files, the applicable files are passed as
// arguments; otherwise the command receives the original hook arguments and
// stdin.
type CommandCheck struct{}

func (CommandCheck) Run(ctx context.Context, h *Hook) (Result, error) {
	argv, err := h.Command()
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("hook %s has no command", h.Name())
	}

	var res *proc.Result
	if h.Options().Bool("requiresFiles") {
		files, ferr := h.ApplicableFiles()
		if ferr != nil {
			return nil, ferr
		}
		res, err = h.Execute(ctx, argv, files)
	} else {
		res, err = h.ExecuteHook(ctx, argv)
	}
	if err != nil {
		return nil, err
	}

	if res.Success() {
		return StatusPass, nil
	}
	return StatusOutput{Status: StatusFail, Output: strings.TrimRight(res.Combined(), "\n")}, nil
}
