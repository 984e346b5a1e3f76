package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/affiance/internal/hook"
)

// SubmoduleStatus warns about submodules that are uninitialized, out of date
// with the index, or conflicted.
type SubmoduleStatus struct{}

func (SubmoduleStatus) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	statuses, err := h.Context().Repo().SubmoduleStatuses(h.Options().Bool("recursive"))
	if err != nil {
		return nil, err
	}
	var problems []string
	for _, s := range statuses {
		switch {
		case s.Uninitialized():
			problems = append(problems, fmt.Sprintf("Submodule %s is uninitialized.", s.Path))
		case s.Outdated():
			problems = append(problems, fmt.Sprintf("Submodule %s is out of date with the current index.", s.Path))
		case s.MergeConflict():
			problems = append(problems, fmt.Sprintf("Submodule %s has merge conflicts.", s.Path))
		}
	}
	if len(problems) > 0 {
		return hook.Warn("%s", strings.Join(problems, "\n")), nil
	}
	return hook.StatusPass, nil
}
